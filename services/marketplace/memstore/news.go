package memstore

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"seatrail/pkg/apperr"
	m "seatrail/services/marketplace"
)

func (t *tx) CreateNewsPost(_ context.Context, p *m.NewsPost) error { return t.s.insert(p) }

func (t *tx) GetNewsPost(_ context.Context, id uuid.UUID) (m.NewsPost, error) {
	return get[m.NewsPost](t.s, m.TableNewsPosts, id, "news post")
}

func (t *tx) UpdateNewsPost(_ context.Context, p *m.NewsPost) error {
	return t.s.update(p, "news post")
}

func (t *tx) ListNewsPosts(_ context.Context, f m.NewsFilter) ([]m.NewsPost, error) {
	out := list(t.s, m.TableNewsPosts, func(p m.NewsPost) bool { return !f.PublishedOnly || p.IsPublished })
	slices.SortFunc(out, byCreated(func(p m.NewsPost) int64 { return p.CreatedAt.UnixNano() }, func(p m.NewsPost) uuid.UUID { return p.ID }, true))
	return out, nil
}

func (t *tx) NewsStats(_ context.Context, postIDs []uuid.UUID) (map[uuid.UUID]m.NewsStats, error) {
	out := map[uuid.UUID]m.NewsStats{}
	for _, l := range list(t.s, m.TableNewsLikes, func(l m.NewsLike) bool { return slices.Contains(postIDs, l.PostID) }) {
		st := out[l.PostID]
		st.Likes++
		out[l.PostID] = st
	}
	for _, c := range list(t.s, m.TableNewsComments, func(c m.NewsComment) bool { return slices.Contains(postIDs, c.PostID) }) {
		st := out[c.PostID]
		st.Comments++
		out[c.PostID] = st
	}
	return out, nil
}

func (t *tx) CreateNewsComment(_ context.Context, c *m.NewsComment) error { return t.s.insert(c) }

func (t *tx) GetNewsComment(_ context.Context, id uuid.UUID) (m.NewsComment, error) {
	return get[m.NewsComment](t.s, m.TableNewsComments, id, "comment")
}

func (t *tx) ListNewsComments(_ context.Context, postID uuid.UUID) ([]m.NewsComment, error) {
	out := list(t.s, m.TableNewsComments, func(c m.NewsComment) bool { return c.PostID == postID })
	slices.SortFunc(out, byCreated(func(c m.NewsComment) int64 { return c.CreatedAt.UnixNano() }, func(c m.NewsComment) uuid.UUID { return c.ID }, false))
	return out, nil
}

func (t *tx) CreateNewsLike(_ context.Context, l *m.NewsLike) error { return t.s.insert(l) }

func (t *tx) FindNewsLike(_ context.Context, postID, userID uuid.UUID) (m.NewsLike, error) {
	for _, l := range list[m.NewsLike](t.s, m.TableNewsLikes, nil) {
		if l.PostID == postID && l.UserID == userID {
			return l, nil
		}
	}
	return m.NewsLike{}, apperr.NotFound("like of post %s by %s not found", postID, userID)
}

func (t *tx) LikedPosts(_ context.Context, userID uuid.UUID, postIDs []uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, l := range list(t.s, m.TableNewsLikes, func(l m.NewsLike) bool { return l.UserID == userID && slices.Contains(postIDs, l.PostID) }) {
		out = append(out, l.PostID)
	}
	return out, nil
}
