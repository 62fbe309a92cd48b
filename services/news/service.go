// Package news publishes the marketplace news feed. Administrators write posts;
// signed in users like and comment on the published ones.
package news

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"seatrail/pkg/apperr"
	"seatrail/services/marketplace"
)

const (
	maxTitleLength   = 500
	maxBodyLength    = 50000
	maxCommentLength = 2000
	summaryLength    = 200
)

type PostInput struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	IsPublished bool   `json:"is_published"`
}

// PostUpdate changes the set fields of a post.
type PostUpdate struct {
	Title       *string `json:"title"`
	Body        *string `json:"body"`
	IsPublished *bool   `json:"is_published"`
}

// Post is a news post as shown in feeds.
type Post struct {
	marketplace.NewsPost
	Summary      string `json:"summary"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	Liked        bool   `json:"liked"`
}

type PostDetail struct {
	Post
	Comments []marketplace.NewsComment `json:"comments"`
}

type Service struct {
	store marketplace.Store
	log   zerolog.Logger
}

func NewService(store marketplace.Store, log zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	return &Service{store: store, log: log.With().Str("component", "news").Logger()}, nil
}

func validatePost(title, body string) error {
	switch {
	case title == "":
		return apperr.Invalid("title is required")
	case utf8.RuneCountInString(title) > maxTitleLength:
		return apperr.Invalid("title exceeds %d characters", maxTitleLength)
	case strings.TrimSpace(body) == "":
		return apperr.Invalid("body is required")
	case utf8.RuneCountInString(body) > maxBodyLength:
		return apperr.Invalid("body exceeds %d characters", maxBodyLength)
	}
	return nil
}

// summarize returns the first summaryLength characters of body.
func summarize(body string) string {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= summaryLength {
		return body
	}
	return string([]rune(body)[:summaryLength]) + "..."
}

func (s *Service) CreatePost(ctx context.Context, authorID uuid.UUID, in PostInput) (Post, error) {
	title := strings.TrimSpace(in.Title)
	if err := validatePost(title, in.Body); err != nil {
		return Post{}, err
	}
	p := marketplace.NewsPost{
		ID:          uuid.New(),
		AuthorID:    authorID,
		Title:       title,
		Body:        in.Body,
		IsPublished: in.IsPublished,
	}
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		if _, err := tx.GetUser(ctx, authorID); err != nil {
			return err
		}
		return tx.CreateNewsPost(ctx, &p)
	})
	if err != nil {
		return Post{}, err
	}
	s.log.Info().Str("post_id", p.ID.String()).Bool("published", p.IsPublished).Msg("news post created")
	return Post{NewsPost: p, Summary: summarize(p.Body)}, nil
}

func (s *Service) UpdatePost(ctx context.Context, id uuid.UUID, in PostUpdate) (Post, error) {
	var out Post
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		p, err := tx.GetNewsPost(ctx, id)
		if err != nil {
			return err
		}
		if in.Title != nil {
			p.Title = strings.TrimSpace(*in.Title)
		}
		if in.Body != nil {
			p.Body = *in.Body
		}
		if in.IsPublished != nil {
			p.IsPublished = *in.IsPublished
		}
		if err := validatePost(p.Title, p.Body); err != nil {
			return err
		}
		if err := tx.UpdateNewsPost(ctx, &p); err != nil {
			return err
		}
		posts, err := decorate(ctx, tx, []marketplace.NewsPost{p}, uuid.Nil)
		if err != nil {
			return err
		}
		out = posts[0]
		return nil
	})
	return out, err
}

// DeletePost removes a post with its likes and comments.
func (s *Service) DeletePost(ctx context.Context, id uuid.UUID) error {
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		n, err := tx.DeleteIDs(ctx, marketplace.TableNewsPosts, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("news post %s not found", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("post_id", id.String()).Msg("news post deleted")
	return nil
}

// ListPublished returns published posts newest first. Liked reflects viewer, which may be uuid.Nil.
func (s *Service) ListPublished(ctx context.Context, viewer uuid.UUID) ([]Post, error) {
	return s.list(ctx, marketplace.NewsFilter{PublishedOnly: true}, viewer)
}

// ListAll includes drafts.
func (s *Service) ListAll(ctx context.Context) ([]Post, error) {
	return s.list(ctx, marketplace.NewsFilter{}, uuid.Nil)
}

func (s *Service) list(ctx context.Context, f marketplace.NewsFilter, viewer uuid.UUID) ([]Post, error) {
	var out []Post
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		posts, err := tx.ListNewsPosts(ctx, f)
		if err != nil {
			return err
		}
		out, err = decorate(ctx, tx, posts, viewer)
		return err
	})
	return out, err
}

func decorate(ctx context.Context, tx marketplace.Tx, posts []marketplace.NewsPost, viewer uuid.UUID) ([]Post, error) {
	ids := make([]uuid.UUID, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	stats, err := tx.NewsStats(ctx, ids)
	if err != nil {
		return nil, err
	}
	liked := map[uuid.UUID]bool{}
	if viewer != uuid.Nil {
		likedIDs, err := tx.LikedPosts(ctx, viewer, ids)
		if err != nil {
			return nil, err
		}
		for _, id := range likedIDs {
			liked[id] = true
		}
	}

	out := make([]Post, len(posts))
	for i, p := range posts {
		st := stats[p.ID]
		out[i] = Post{
			NewsPost:     p,
			Summary:      summarize(p.Body),
			LikeCount:    st.Likes,
			CommentCount: st.Comments,
			Liked:        liked[p.ID],
		}
	}
	return out, nil
}

// Get returns a post with its comments. Drafts are NotFound unless drafts is set.
func (s *Service) Get(ctx context.Context, id, viewer uuid.UUID, drafts bool) (PostDetail, error) {
	var out PostDetail
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		p, err := visiblePost(ctx, tx, id, drafts)
		if err != nil {
			return err
		}
		posts, err := decorate(ctx, tx, []marketplace.NewsPost{p}, viewer)
		if err != nil {
			return err
		}
		comments, err := tx.ListNewsComments(ctx, id)
		if err != nil {
			return err
		}
		out = PostDetail{Post: posts[0], Comments: comments}
		return nil
	})
	return out, err
}

func visiblePost(ctx context.Context, tx marketplace.Tx, id uuid.UUID, drafts bool) (marketplace.NewsPost, error) {
	p, err := tx.GetNewsPost(ctx, id)
	if err != nil {
		return marketplace.NewsPost{}, err
	}
	if !p.IsPublished && !drafts {
		return marketplace.NewsPost{}, apperr.NotFound("news post %s not found", id)
	}
	return p, nil
}

func activeUser(ctx context.Context, tx marketplace.Tx, id uuid.UUID) (marketplace.User, error) {
	u, err := tx.GetUser(ctx, id)
	if err != nil {
		return u, err
	}
	if !u.IsActive {
		return u, apperr.Policy("user %s is banned", id)
	}
	return u, nil
}

// Like records that userID likes a published post. Liking twice is a Conflict.
func (s *Service) Like(ctx context.Context, userID, postID uuid.UUID) error {
	return s.store.InTx(ctx, func(tx marketplace.Tx) error {
		if _, err := activeUser(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := visiblePost(ctx, tx, postID, false); err != nil {
			return err
		}
		return tx.CreateNewsLike(ctx, &marketplace.NewsLike{ID: uuid.New(), PostID: postID, UserID: userID})
	})
}

func (s *Service) Unlike(ctx context.Context, userID, postID uuid.UUID) error {
	return s.store.InTx(ctx, func(tx marketplace.Tx) error {
		like, err := tx.FindNewsLike(ctx, postID, userID)
		if err != nil {
			return err
		}
		_, err = tx.DeleteIDs(ctx, marketplace.TableNewsLikes, []uuid.UUID{like.ID})
		return err
	})
}

func (s *Service) AddComment(ctx context.Context, userID, postID uuid.UUID, text string) (marketplace.NewsComment, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return marketplace.NewsComment{}, apperr.Invalid("text is required")
	case utf8.RuneCountInString(text) > maxCommentLength:
		return marketplace.NewsComment{}, apperr.Invalid("text exceeds %d characters", maxCommentLength)
	}

	c := marketplace.NewsComment{ID: uuid.New(), PostID: postID, UserID: userID, Text: text}
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		if _, err := activeUser(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := visiblePost(ctx, tx, postID, false); err != nil {
			return err
		}
		return tx.CreateNewsComment(ctx, &c)
	})
	return c, err
}

// DeleteComment removes a comment. Only its author or an administrator may do so.
func (s *Service) DeleteComment(ctx context.Context, actorID, postID, commentID uuid.UUID) error {
	return s.store.InTx(ctx, func(tx marketplace.Tx) error {
		c, err := tx.GetNewsComment(ctx, commentID)
		if err != nil {
			return err
		}
		if c.PostID != postID {
			return apperr.NotFound("comment %s not found", commentID)
		}
		if c.UserID != actorID {
			actor, err := tx.GetUser(ctx, actorID)
			if err != nil && !apperr.Is(err, apperr.KindNotFound) {
				return err
			}
			if actor.Role != marketplace.RoleAdmin {
				return apperr.Policy("user %s may not delete comment %s", actorID, commentID)
			}
		}
		_, err = tx.DeleteIDs(ctx, marketplace.TableNewsComments, []uuid.UUID{commentID})
		return err
	})
}

// ListComments returns the comments of a published post oldest first.
func (s *Service) ListComments(ctx context.Context, postID uuid.UUID) ([]marketplace.NewsComment, error) {
	var out []marketplace.NewsComment
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		if _, err := visiblePost(ctx, tx, postID, false); err != nil {
			return err
		}
		var err error
		out, err = tx.ListNewsComments(ctx, postID)
		return err
	})
	return out, err
}
