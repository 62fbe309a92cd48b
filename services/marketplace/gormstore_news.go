package marketplace

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

func (t *gormTx) CreateNewsPost(ctx context.Context, p *NewsPost) error {
	return t.create(ctx, p, "news post")
}

func (t *gormTx) GetNewsPost(ctx context.Context, id uuid.UUID) (NewsPost, error) {
	var p NewsPost
	err := t.first(ctx, &p, "news post", id)
	return p, err
}

func (t *gormTx) UpdateNewsPost(ctx context.Context, p *NewsPost) error {
	return t.save(ctx, p, "news post", p.ID)
}

func (t *gormTx) ListNewsPosts(ctx context.Context, f NewsFilter) ([]NewsPost, error) {
	q := t.db.WithContext(ctx).Order("created_at DESC, id ASC")
	if f.PublishedOnly {
		q = q.Where("is_published = ?", true)
	}
	var out []NewsPost
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list news posts: %w", err)
	}
	return out, nil
}

type postCount struct {
	PostID uuid.UUID
	N      int64
}

func (t *gormTx) countByPost(ctx context.Context, model any, postIDs []uuid.UUID) ([]postCount, error) {
	var rows []postCount
	err := t.db.WithContext(ctx).Model(model).
		Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	return rows, err
}

func (t *gormTx) NewsStats(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]NewsStats, error) {
	out := map[uuid.UUID]NewsStats{}
	if len(postIDs) == 0 {
		return out, nil
	}
	likes, err := t.countByPost(ctx, &NewsLike{}, postIDs)
	if err != nil {
		return nil, fmt.Errorf("count news likes: %w", err)
	}
	comments, err := t.countByPost(ctx, &NewsComment{}, postIDs)
	if err != nil {
		return nil, fmt.Errorf("count news comments: %w", err)
	}
	for _, row := range likes {
		st := out[row.PostID]
		st.Likes = row.N
		out[row.PostID] = st
	}
	for _, row := range comments {
		st := out[row.PostID]
		st.Comments = row.N
		out[row.PostID] = st
	}
	return out, nil
}

func (t *gormTx) CreateNewsComment(ctx context.Context, c *NewsComment) error {
	return t.create(ctx, c, "news comment")
}

func (t *gormTx) GetNewsComment(ctx context.Context, id uuid.UUID) (NewsComment, error) {
	var c NewsComment
	err := t.first(ctx, &c, "comment", id)
	return c, err
}

func (t *gormTx) ListNewsComments(ctx context.Context, postID uuid.UUID) ([]NewsComment, error) {
	var out []NewsComment
	err := t.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at ASC, id ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list news comments: %w", err)
	}
	return out, nil
}

func (t *gormTx) CreateNewsLike(ctx context.Context, l *NewsLike) error {
	return t.create(ctx, l, "like of post "+l.PostID.String())
}

func (t *gormTx) FindNewsLike(ctx context.Context, postID, userID uuid.UUID) (NewsLike, error) {
	var l NewsLike
	err := t.db.WithContext(ctx).First(&l, "post_id = ? AND user_id = ?", postID, userID).Error
	return l, translate(err, "like of post %s by %s", postID, userID)
}

func (t *gormTx) LikedPosts(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) ([]uuid.UUID, error) {
	if userID == uuid.Nil || len(postIDs) == 0 {
		return nil, nil
	}
	var out []uuid.UUID
	err := t.db.WithContext(ctx).Model(&NewsLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &out).Error
	if err != nil {
		return nil, fmt.Errorf("liked posts of %s: %w", userID, err)
	}
	return out, nil
}
