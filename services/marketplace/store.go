package marketplace

import (
	"context"

	"github.com/google/uuid"
)

// Store runs units of work against the marketplace schema.
type Store interface {
	// InTx runs fn in a single transaction. A non-nil error from fn rolls back every write.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type UserFilter struct {
	Role   Role
	Active *bool
}

type GuideFilter struct {
	Status VerificationStatus
}

type TourFilter struct {
	GuideID    uuid.UUID
	ActiveOnly bool
	// VerifiedOnly restricts the result to tours whose guide is VERIFIED.
	VerifiedOnly bool
}

// ReviewFilter selects reviews by any combination of ids. Zero ids match everything.
type ReviewFilter struct {
	GuideID   uuid.UUID
	TourID    uuid.UUID
	TouristID uuid.UUID
}

type NewsFilter struct {
	PublishedOnly bool
}

// Tx is the set of queries available inside a transaction. Lookups of a single
// row return an apperr NotFound error when the row does not exist.
type Tx interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]User, error)
	UpdateUser(ctx context.Context, u *User) error

	CreateGuide(ctx context.Context, g *Guide) error
	GetGuide(ctx context.Context, id uuid.UUID) (Guide, error)
	// LockGuide reads a guide row and holds a row lock on it until the transaction ends.
	LockGuide(ctx context.Context, id uuid.UUID) (Guide, error)
	FindGuideByUser(ctx context.Context, userID uuid.UUID) (Guide, error)
	ListGuides(ctx context.Context, f GuideFilter) ([]Guide, error)
	UpdateGuide(ctx context.Context, g *Guide) error
	CreateSpecialty(ctx context.Context, s *GuideSpecialty) error
	CreateLanguage(ctx context.Context, l *GuideLanguage) error
	ListSpecialties(ctx context.Context, guideID uuid.UUID) ([]GuideSpecialty, error)
	ListLanguages(ctx context.Context, guideID uuid.UUID) ([]GuideLanguage, error)

	CreateTour(ctx context.Context, t *Tour) error
	GetTour(ctx context.Context, id uuid.UUID) (Tour, error)
	UpdateTour(ctx context.Context, t *Tour) error
	ListTours(ctx context.Context, f TourFilter) ([]Tour, error)
	CreateTourImage(ctx context.Context, img *TourImage) error
	ListTourImages(ctx context.Context, tourID uuid.UUID) ([]TourImage, error)
	// TourImageURLs returns the image URLs of every listed tour.
	TourImageURLs(ctx context.Context, tourIDs []uuid.UUID) ([]string, error)
	// MediaInUse returns the urls still referenced by a tour image or a profile picture.
	MediaInUse(ctx context.Context, urls []string) ([]string, error)

	CreateBooking(ctx context.Context, b *Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (Booking, error)
	UpdateBooking(ctx context.Context, b *Booking) error
	CreatePayment(ctx context.Context, p *Payment) error

	CreateReview(ctx context.Context, r *Review) error
	ReviewExists(ctx context.Context, bookingID uuid.UUID) (bool, error)
	ListReviews(ctx context.Context, f ReviewFilter) ([]Review, error)
	RatingCounts(ctx context.Context, f ReviewFilter) (RatingCounts, error)

	CreateMessage(ctx context.Context, m *Message) error
	// ListConversation returns messages exchanged between two users, newest first.
	ListConversation(ctx context.Context, userID, partnerID uuid.UUID, limit int) ([]Message, error)
	Conversations(ctx context.Context, userID uuid.UUID) ([]ConversationSummary, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	// MarkRead flags every unread message from senderID to receiverID as read.
	MarkRead(ctx context.Context, receiverID, senderID uuid.UUID) (int64, error)

	CreateNewsPost(ctx context.Context, p *NewsPost) error
	GetNewsPost(ctx context.Context, id uuid.UUID) (NewsPost, error)
	UpdateNewsPost(ctx context.Context, p *NewsPost) error
	// ListNewsPosts returns posts newest first.
	ListNewsPosts(ctx context.Context, f NewsFilter) ([]NewsPost, error)
	// NewsStats returns like and comment counts per post. Posts without either are absent.
	NewsStats(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]NewsStats, error)
	CreateNewsComment(ctx context.Context, c *NewsComment) error
	GetNewsComment(ctx context.Context, id uuid.UUID) (NewsComment, error)
	// ListNewsComments returns the comments of a post oldest first.
	ListNewsComments(ctx context.Context, postID uuid.UUID) ([]NewsComment, error)
	CreateNewsLike(ctx context.Context, l *NewsLike) error
	FindNewsLike(ctx context.Context, postID, userID uuid.UUID) (NewsLike, error)
	// LikedPosts returns which of postIDs userID has liked.
	LikedPosts(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) ([]uuid.UUID, error)

	// PluckIDs returns the distinct values of pluck for rows of table whose where
	// column is one of keys. Both columns must be declared in References.
	PluckIDs(ctx context.Context, table, pluck, where string, keys []uuid.UUID) ([]uuid.UUID, error)
	// DeleteIDs deletes rows of table by primary key and returns the number removed.
	DeleteIDs(ctx context.Context, table string, ids []uuid.UUID) (int64, error)
}
