package marketplace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"seatrail/pkg/apperr"
)

const pgUniqueViolation = "23505"

// GormStore implements Store on top of a gorm PostgreSQL session.
type GormStore struct {
	orm *gorm.DB
}

// NewGormStore wraps orm. The session should be opened with TranslateError enabled.
func NewGormStore(orm *gorm.DB) (*GormStore, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	return &GormStore{orm: orm}, nil
}

func (s *GormStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

type gormTx struct {
	db *gorm.DB
}

func translate(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	what := fmt.Sprintf(format, args...)

	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.Wrap(err, apperr.KindNotFound, what+" not found")
	case errors.Is(err, gorm.ErrDuplicatedKey),
		errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation:
		return apperr.Wrap(err, apperr.KindConflict, what+" already exists")
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (t *gormTx) first(ctx context.Context, dest any, what string, id uuid.UUID) error {
	return translate(t.db.WithContext(ctx).First(dest, "id = ?", id).Error, "%s %s", what, id)
}

func (t *gormTx) create(ctx context.Context, row any, what string) error {
	return translate(t.db.WithContext(ctx).Create(row).Error, "create %s", what)
}

// save writes every column of row, which must already exist.
func (t *gormTx) save(ctx context.Context, row any, what string, id uuid.UUID) error {
	res := t.db.WithContext(ctx).Model(row).Select("*").Updates(row)
	if res.Error != nil {
		return translate(res.Error, "update %s %s", what, id)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("%s %s not found", what, id)
	}
	return nil
}

func (t *gormTx) CreateUser(ctx context.Context, u *User) error {
	return t.create(ctx, u, "user "+u.Email)
}

func (t *gormTx) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := t.first(ctx, &u, "user", id)
	return u, err
}

func (t *gormTx) ListUsers(ctx context.Context, f UserFilter) ([]User, error) {
	q := t.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	var users []User
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (t *gormTx) UpdateUser(ctx context.Context, u *User) error {
	return t.save(ctx, u, "user", u.ID)
}

func (t *gormTx) CreateGuide(ctx context.Context, g *Guide) error {
	return t.create(ctx, g, "guide profile for user "+g.UserID.String())
}

func (t *gormTx) GetGuide(ctx context.Context, id uuid.UUID) (Guide, error) {
	var g Guide
	err := t.first(ctx, &g, "guide", id)
	return g, err
}

func (t *gormTx) LockGuide(ctx context.Context, id uuid.UUID) (Guide, error) {
	var g Guide
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&g, "id = ?", id).Error
	return g, translate(err, "guide %s", id)
}

func (t *gormTx) FindGuideByUser(ctx context.Context, userID uuid.UUID) (Guide, error) {
	var g Guide
	err := t.db.WithContext(ctx).First(&g, "user_id = ?", userID).Error
	return g, translate(err, "guide profile for user %s", userID)
}

func (t *gormTx) ListGuides(ctx context.Context, f GuideFilter) ([]Guide, error) {
	q := t.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if f.Status != "" {
		q = q.Where("verification_status = ?", f.Status)
	}
	var guides []Guide
	if err := q.Find(&guides).Error; err != nil {
		return nil, fmt.Errorf("list guides: %w", err)
	}
	return guides, nil
}

func (t *gormTx) UpdateGuide(ctx context.Context, g *Guide) error {
	return t.save(ctx, g, "guide", g.ID)
}

func (t *gormTx) CreateSpecialty(ctx context.Context, s *GuideSpecialty) error {
	return t.create(ctx, s, "guide specialty "+s.Specialty)
}

func (t *gormTx) CreateLanguage(ctx context.Context, l *GuideLanguage) error {
	return t.create(ctx, l, "guide language "+l.Language)
}

func (t *gormTx) ListSpecialties(ctx context.Context, guideID uuid.UUID) ([]GuideSpecialty, error) {
	var out []GuideSpecialty
	err := t.db.WithContext(ctx).Where("guide_id = ?", guideID).Order("specialty ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list specialties: %w", err)
	}
	return out, nil
}

func (t *gormTx) ListLanguages(ctx context.Context, guideID uuid.UUID) ([]GuideLanguage, error) {
	var out []GuideLanguage
	err := t.db.WithContext(ctx).Where("guide_id = ?", guideID).Order("language ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	return out, nil
}

func (t *gormTx) CreateTour(ctx context.Context, tour *Tour) error {
	return t.create(ctx, tour, "tour "+tour.Title)
}

func (t *gormTx) GetTour(ctx context.Context, id uuid.UUID) (Tour, error) {
	var tour Tour
	err := t.first(ctx, &tour, "tour", id)
	return tour, err
}

func (t *gormTx) UpdateTour(ctx context.Context, tour *Tour) error {
	return t.save(ctx, tour, "tour", tour.ID)
}

func (t *gormTx) ListTours(ctx context.Context, f TourFilter) ([]Tour, error) {
	q := t.db.WithContext(ctx).Model(&Tour{}).Order("tours.created_at DESC, tours.id ASC")
	if f.GuideID != uuid.Nil {
		q = q.Where("tours.guide_id = ?", f.GuideID)
	}
	if f.ActiveOnly {
		q = q.Where("tours.is_active = ?", true)
	}
	if f.VerifiedOnly {
		q = q.Joins("JOIN guides ON guides.id = tours.guide_id").
			Where("guides.verification_status = ?", VerificationVerified)
	}
	var tours []Tour
	if err := q.Find(&tours).Error; err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	return tours, nil
}

func (t *gormTx) CreateTourImage(ctx context.Context, img *TourImage) error {
	return t.create(ctx, img, "tour image")
}

func (t *gormTx) ListTourImages(ctx context.Context, tourID uuid.UUID) ([]TourImage, error) {
	var out []TourImage
	err := t.db.WithContext(ctx).Where("tour_id = ?", tourID).Order("is_primary DESC, created_at ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list tour images: %w", err)
	}
	return out, nil
}

func (t *gormTx) TourImageURLs(ctx context.Context, tourIDs []uuid.UUID) ([]string, error) {
	if len(tourIDs) == 0 {
		return nil, nil
	}
	var urls []string
	err := t.db.WithContext(ctx).Model(&TourImage{}).Where("tour_id IN ?", tourIDs).Order("url").Pluck("url", &urls).Error
	if err != nil {
		return nil, fmt.Errorf("tour image urls: %w", err)
	}
	return urls, nil
}

func (t *gormTx) MediaInUse(ctx context.Context, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	var used []string
	err := t.db.WithContext(ctx).Raw(
		`SELECT url FROM tour_images WHERE url IN @urls
		UNION
		SELECT profile_picture_url FROM users WHERE profile_picture_url IN @urls`,
		sql.Named("urls", urls),
	).Scan(&used).Error
	if err != nil {
		return nil, fmt.Errorf("media in use: %w", err)
	}
	return used, nil
}

func (t *gormTx) CreateBooking(ctx context.Context, b *Booking) error {
	return t.create(ctx, b, "booking")
}

func (t *gormTx) GetBooking(ctx context.Context, id uuid.UUID) (Booking, error) {
	var b Booking
	err := t.first(ctx, &b, "booking", id)
	return b, err
}

func (t *gormTx) UpdateBooking(ctx context.Context, b *Booking) error {
	return t.save(ctx, b, "booking", b.ID)
}

func (t *gormTx) CreatePayment(ctx context.Context, p *Payment) error {
	return t.create(ctx, p, "payment for booking "+p.BookingID.String())
}

func (t *gormTx) CreateReview(ctx context.Context, r *Review) error {
	return t.create(ctx, r, "review for booking "+r.BookingID.String())
}

func (t *gormTx) ReviewExists(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var n int64
	if err := t.db.WithContext(ctx).Model(&Review{}).Where("booking_id = ?", bookingID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check review for booking %s: %w", bookingID, err)
	}
	return n > 0, nil
}

func reviewScope(q *gorm.DB, f ReviewFilter) *gorm.DB {
	if f.GuideID != uuid.Nil {
		q = q.Where("guide_id = ?", f.GuideID)
	}
	if f.TourID != uuid.Nil {
		q = q.Where("tour_id = ?", f.TourID)
	}
	if f.TouristID != uuid.Nil {
		q = q.Where("tourist_id = ?", f.TouristID)
	}
	return q
}

func (t *gormTx) ListReviews(ctx context.Context, f ReviewFilter) ([]Review, error) {
	var out []Review
	q := reviewScope(t.db.WithContext(ctx).Model(&Review{}), f).Order("created_at DESC, id ASC")
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return out, nil
}

func (t *gormTx) RatingCounts(ctx context.Context, f ReviewFilter) (RatingCounts, error) {
	var rows []struct {
		Rating int
		N      int64
	}
	q := reviewScope(t.db.WithContext(ctx).Model(&Review{}), f).
		Select("rating, COUNT(*) AS n").
		Group("rating")
	if err := q.Scan(&rows).Error; err != nil {
		return RatingCounts{}, fmt.Errorf("rating counts: %w", err)
	}

	var counts RatingCounts
	for _, row := range rows {
		if row.Rating < 1 || row.Rating > len(counts) {
			return RatingCounts{}, fmt.Errorf("rating counts: unexpected rating %d", row.Rating)
		}
		counts[row.Rating-1] = row.N
	}
	return counts, nil
}

func (t *gormTx) CreateMessage(ctx context.Context, m *Message) error {
	return t.create(ctx, m, "message")
}

func (t *gormTx) ListConversation(ctx context.Context, userID, partnerID uuid.UUID, limit int) ([]Message, error) {
	q := t.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userID, partnerID, partnerID, userID).
		Order("created_at DESC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []Message
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	return out, nil
}

const conversationsQuery = `
SELECT partner_id, last_message, last_message_at, unread
FROM (
	SELECT
		CASE WHEN sender_id = @user THEN receiver_id ELSE sender_id END AS partner_id,
		content AS last_message,
		created_at AS last_message_at,
		ROW_NUMBER() OVER w AS rn,
		COUNT(*) FILTER (WHERE receiver_id = @user AND NOT is_read) OVER (PARTITION BY CASE WHEN sender_id = @user THEN receiver_id ELSE sender_id END) AS unread
	FROM messages
	WHERE sender_id = @user OR receiver_id = @user
	WINDOW w AS (PARTITION BY CASE WHEN sender_id = @user THEN receiver_id ELSE sender_id END ORDER BY created_at DESC, id DESC)
) c
WHERE rn = 1
ORDER BY last_message_at DESC`

func (t *gormTx) Conversations(ctx context.Context, userID uuid.UUID) ([]ConversationSummary, error) {
	var out []ConversationSummary
	if err := t.db.WithContext(ctx).Raw(conversationsQuery, sql.Named("user", userID)).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("conversations for %s: %w", userID, err)
	}
	return out, nil
}

func (t *gormTx) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(&Message{}).Where("receiver_id = ? AND is_read = ?", userID, false).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread for %s: %w", userID, err)
	}
	return n, nil
}

func (t *gormTx) MarkRead(ctx context.Context, receiverID, senderID uuid.UUID) (int64, error) {
	res := t.db.WithContext(ctx).Model(&Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", receiverID, senderID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (t *gormTx) PluckIDs(ctx context.Context, table, pluck, where string, keys []uuid.UUID) ([]uuid.UUID, error) {
	if !KnownColumn(References, table, pluck) || !KnownColumn(References, table, where) {
		return nil, fmt.Errorf("pluck %s.%s by %s: unknown column", table, pluck, where)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	var ids []uuid.UUID
	err := t.db.WithContext(ctx).Table(table).
		Distinct(pluck).
		Where(clause.Expr{SQL: "? IN ?", Vars: []any{clause.Column{Name: where}, keys}}).
		Where(clause.Expr{SQL: "? IS NOT NULL", Vars: []any{clause.Column{Name: pluck}}}).
		Pluck(pluck, &ids).Error
	if err != nil {
		return nil, fmt.Errorf("pluck %s.%s by %s: %w", table, pluck, where, err)
	}
	return ids, nil
}

func (t *gormTx) DeleteIDs(ctx context.Context, table string, ids []uuid.UUID) (int64, error) {
	if !KnownTable(References, table) {
		return 0, fmt.Errorf("delete from %s: unknown table", table)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	res := t.db.WithContext(ctx).Exec("DELETE FROM ? WHERE id IN ?", clause.Table{Name: table}, ids)
	if res.Error != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, res.Error)
	}
	return res.RowsAffected, nil
}
