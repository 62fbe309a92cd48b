package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"seatrail/pkg/apperr"
	m "seatrail/services/marketplace"
)

type tx struct {
	s *Store
}

var _ m.Tx = (*tx)(nil)

func byCreated[T any](created func(T) int64, id func(T) uuid.UUID, desc bool) func(a, b T) int {
	return func(a, b T) int {
		c := cmp.Compare(created(a), created(b))
		if desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(id(a).String(), id(b).String())
	}
}

func (t *tx) CreateUser(_ context.Context, u *m.User) error { return t.s.insert(u) }

func (t *tx) GetUser(_ context.Context, id uuid.UUID) (m.User, error) {
	return get[m.User](t.s, m.TableUsers, id, "user")
}

func (t *tx) ListUsers(_ context.Context, f m.UserFilter) ([]m.User, error) {
	out := list(t.s, m.TableUsers, func(u m.User) bool {
		if f.Role != "" && u.Role != f.Role {
			return false
		}
		return f.Active == nil || u.IsActive == *f.Active
	})
	slices.SortFunc(out, byCreated(func(u m.User) int64 { return u.CreatedAt.UnixNano() }, func(u m.User) uuid.UUID { return u.ID }, false))
	return out, nil
}

func (t *tx) UpdateUser(_ context.Context, u *m.User) error { return t.s.update(u, "user") }

func (t *tx) CreateGuide(_ context.Context, g *m.Guide) error { return t.s.insert(g) }

func (t *tx) GetGuide(_ context.Context, id uuid.UUID) (m.Guide, error) {
	return get[m.Guide](t.s, m.TableGuides, id, "guide")
}

func (t *tx) LockGuide(ctx context.Context, id uuid.UUID) (m.Guide, error) {
	return t.GetGuide(ctx, id)
}

func (t *tx) FindGuideByUser(_ context.Context, userID uuid.UUID) (m.Guide, error) {
	for _, g := range list[m.Guide](t.s, m.TableGuides, nil) {
		if g.UserID == userID {
			return g, nil
		}
	}
	return m.Guide{}, apperr.NotFound("guide profile for user %s not found", userID)
}

func (t *tx) ListGuides(_ context.Context, f m.GuideFilter) ([]m.Guide, error) {
	out := list(t.s, m.TableGuides, func(g m.Guide) bool {
		return f.Status == "" || g.VerificationStatus == f.Status
	})
	slices.SortFunc(out, byCreated(func(g m.Guide) int64 { return g.CreatedAt.UnixNano() }, func(g m.Guide) uuid.UUID { return g.ID }, false))
	return out, nil
}

func (t *tx) UpdateGuide(_ context.Context, g *m.Guide) error { return t.s.update(g, "guide") }

func (t *tx) CreateSpecialty(_ context.Context, s *m.GuideSpecialty) error { return t.s.insert(s) }

func (t *tx) CreateLanguage(_ context.Context, l *m.GuideLanguage) error { return t.s.insert(l) }

func (t *tx) ListSpecialties(_ context.Context, guideID uuid.UUID) ([]m.GuideSpecialty, error) {
	out := list(t.s, m.TableGuideSpecialties, func(s m.GuideSpecialty) bool { return s.GuideID == guideID })
	slices.SortFunc(out, func(a, b m.GuideSpecialty) int { return strings.Compare(a.Specialty, b.Specialty) })
	return out, nil
}

func (t *tx) ListLanguages(_ context.Context, guideID uuid.UUID) ([]m.GuideLanguage, error) {
	out := list(t.s, m.TableGuideLanguages, func(l m.GuideLanguage) bool { return l.GuideID == guideID })
	slices.SortFunc(out, func(a, b m.GuideLanguage) int { return strings.Compare(a.Language, b.Language) })
	return out, nil
}

func (t *tx) CreateTour(_ context.Context, tour *m.Tour) error { return t.s.insert(tour) }

func (t *tx) GetTour(_ context.Context, id uuid.UUID) (m.Tour, error) {
	return get[m.Tour](t.s, m.TableTours, id, "tour")
}

func (t *tx) UpdateTour(_ context.Context, tour *m.Tour) error { return t.s.update(tour, "tour") }

func (t *tx) ListTours(_ context.Context, f m.TourFilter) ([]m.Tour, error) {
	out := list(t.s, m.TableTours, func(tour m.Tour) bool {
		if f.GuideID != uuid.Nil && tour.GuideID != f.GuideID {
			return false
		}
		if f.ActiveOnly && !tour.IsActive {
			return false
		}
		if f.VerifiedOnly {
			g, ok := t.s.tables[m.TableGuides][tour.GuideID].(m.Guide)
			if !ok || g.VerificationStatus != m.VerificationVerified {
				return false
			}
		}
		return true
	})
	slices.SortFunc(out, byCreated(func(x m.Tour) int64 { return x.CreatedAt.UnixNano() }, func(x m.Tour) uuid.UUID { return x.ID }, true))
	return out, nil
}

func (t *tx) CreateTourImage(_ context.Context, img *m.TourImage) error { return t.s.insert(img) }

func (t *tx) ListTourImages(_ context.Context, tourID uuid.UUID) ([]m.TourImage, error) {
	out := list(t.s, m.TableTourImages, func(img m.TourImage) bool { return img.TourID == tourID })
	slices.SortFunc(out, func(a, b m.TourImage) int {
		if a.IsPrimary != b.IsPrimary {
			if a.IsPrimary {
				return -1
			}
			return 1
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (t *tx) TourImageURLs(_ context.Context, tourIDs []uuid.UUID) ([]string, error) {
	var urls []string
	for _, img := range list(t.s, m.TableTourImages, func(img m.TourImage) bool { return slices.Contains(tourIDs, img.TourID) }) {
		urls = append(urls, img.URL)
	}
	slices.Sort(urls)
	return urls, nil
}

func (t *tx) MediaInUse(_ context.Context, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	var out []string
	for _, img := range list[m.TourImage](t.s, m.TableTourImages, nil) {
		if slices.Contains(urls, img.URL) {
			out = append(out, img.URL)
		}
	}
	for _, u := range list[m.User](t.s, m.TableUsers, nil) {
		if u.ProfilePictureURL != "" && slices.Contains(urls, u.ProfilePictureURL) {
			out = append(out, u.ProfilePictureURL)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (t *tx) CreateBooking(_ context.Context, b *m.Booking) error { return t.s.insert(b) }

func (t *tx) GetBooking(_ context.Context, id uuid.UUID) (m.Booking, error) {
	return get[m.Booking](t.s, m.TableBookings, id, "booking")
}

func (t *tx) UpdateBooking(_ context.Context, b *m.Booking) error { return t.s.update(b, "booking") }

func (t *tx) CreatePayment(_ context.Context, p *m.Payment) error { return t.s.insert(p) }

func (t *tx) CreateReview(_ context.Context, r *m.Review) error {
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("memstore: reviews violates check chk_reviews_rating: rating %d", r.Rating)
	}
	return t.s.insert(r)
}

func (t *tx) ReviewExists(_ context.Context, bookingID uuid.UUID) (bool, error) {
	return len(list(t.s, m.TableReviews, func(r m.Review) bool { return r.BookingID == bookingID })) > 0, nil
}

func reviewMatches(f m.ReviewFilter) func(m.Review) bool {
	return func(r m.Review) bool {
		if f.GuideID != uuid.Nil && r.GuideID != f.GuideID {
			return false
		}
		if f.TourID != uuid.Nil && r.TourID != f.TourID {
			return false
		}
		return f.TouristID == uuid.Nil || r.TouristID == f.TouristID
	}
}

func (t *tx) ListReviews(_ context.Context, f m.ReviewFilter) ([]m.Review, error) {
	out := list(t.s, m.TableReviews, reviewMatches(f))
	slices.SortFunc(out, byCreated(func(r m.Review) int64 { return r.CreatedAt.UnixNano() }, func(r m.Review) uuid.UUID { return r.ID }, true))
	return out, nil
}

func (t *tx) RatingCounts(_ context.Context, f m.ReviewFilter) (m.RatingCounts, error) {
	var counts m.RatingCounts
	for _, r := range list(t.s, m.TableReviews, reviewMatches(f)) {
		counts[r.Rating-1]++
	}
	return counts, nil
}

func (t *tx) CreateMessage(_ context.Context, msg *m.Message) error { return t.s.insert(msg) }

func (t *tx) ListConversation(_ context.Context, userID, partnerID uuid.UUID, limit int) ([]m.Message, error) {
	out := list(t.s, m.TableMessages, func(msg m.Message) bool {
		return (msg.SenderID == userID && msg.ReceiverID == partnerID) ||
			(msg.SenderID == partnerID && msg.ReceiverID == userID)
	})
	slices.SortFunc(out, byCreated(func(x m.Message) int64 { return x.CreatedAt.UnixNano() }, func(x m.Message) uuid.UUID { return x.ID }, true))
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *tx) Conversations(_ context.Context, userID uuid.UUID) ([]m.ConversationSummary, error) {
	byPartner := map[uuid.UUID]*m.ConversationSummary{}
	for _, msg := range list[m.Message](t.s, m.TableMessages, nil) {
		var partner uuid.UUID
		switch userID {
		case msg.SenderID:
			partner = msg.ReceiverID
		case msg.ReceiverID:
			partner = msg.SenderID
		default:
			continue
		}
		sum, ok := byPartner[partner]
		if !ok {
			sum = &m.ConversationSummary{PartnerID: partner}
			byPartner[partner] = sum
		}
		if msg.ReceiverID == userID && !msg.IsRead {
			sum.Unread++
		}
		if !msg.CreatedAt.Before(sum.LastMessageAt) {
			sum.LastMessage = msg.Content
			sum.LastMessageAt = msg.CreatedAt
		}
	}

	out := make([]m.ConversationSummary, 0, len(byPartner))
	for _, sum := range byPartner {
		out = append(out, *sum)
	}
	slices.SortFunc(out, func(a, b m.ConversationSummary) int { return b.LastMessageAt.Compare(a.LastMessageAt) })
	return out, nil
}

func (t *tx) CountUnread(_ context.Context, userID uuid.UUID) (int64, error) {
	n := len(list(t.s, m.TableMessages, func(msg m.Message) bool { return msg.ReceiverID == userID && !msg.IsRead }))
	return int64(n), nil
}

func (t *tx) MarkRead(_ context.Context, receiverID, senderID uuid.UUID) (int64, error) {
	var n int64
	rows := t.s.tables[m.TableMessages]
	for id, row := range rows {
		msg := row.(m.Message)
		if msg.ReceiverID == receiverID && msg.SenderID == senderID && !msg.IsRead {
			msg.IsRead = true
			rows[id] = msg
			n++
		}
	}
	return n, nil
}

func (t *tx) PluckIDs(_ context.Context, table, pluck, where string, keys []uuid.UUID) ([]uuid.UUID, error) {
	if !m.KnownColumn(t.s.refs, table, pluck) || !m.KnownColumn(t.s.refs, table, where) {
		return nil, fmt.Errorf("pluck %s.%s by %s: unknown column", table, pluck, where)
	}
	rows, err := t.s.rows(table)
	if err != nil {
		return nil, err
	}

	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	for _, row := range rows {
		key, ok := uuidColumn(row, where)
		if !ok || !slices.Contains(keys, key) {
			continue
		}
		v, ok := uuidColumn(row, pluck)
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return out, nil
}

func (t *tx) DeleteIDs(_ context.Context, table string, ids []uuid.UUID) (int64, error) {
	if !m.KnownTable(t.s.refs, table) {
		return 0, fmt.Errorf("delete from %s: unknown table", table)
	}
	return t.s.delete(table, ids)
}
