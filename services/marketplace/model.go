package marketplace

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TableUsers            = "users"
	TableGuides           = "guides"
	TableGuideSpecialties = "guide_specialties"
	TableGuideLanguages   = "guide_languages"
	TableTours            = "tours"
	TableTourImages       = "tour_images"
	TableBookings         = "bookings"
	TablePayments         = "payments"
	TableReviews          = "reviews"
	TableMessages         = "messages"
	TableNewsPosts        = "news_posts"
	TableNewsComments     = "news_comments"
	TableNewsLikes        = "news_likes"
)

// User is a marketplace account. Tourists, guides and administrators share this table.
type User struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email             string    `gorm:"type:text;uniqueIndex;not null" json:"email"`
	FirstName         string    `gorm:"type:text;not null" json:"first_name"`
	LastName          string    `gorm:"type:text;not null" json:"last_name"`
	ProfilePictureURL string    `gorm:"type:text" json:"profile_picture_url,omitempty"`
	Role              Role      `gorm:"type:text;not null" json:"role"`
	IsActive          bool      `gorm:"not null" json:"is_active"`
	IsVerified        bool      `gorm:"not null" json:"is_verified"`
	CreatedAt         time.Time `gorm:"type:timestamptz;not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"type:timestamptz;not null;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return TableUsers }

// Guide is the guide profile attached to exactly one user.
type Guide struct {
	ID                    uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                uuid.UUID                   `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Bio                   string                      `gorm:"type:text" json:"bio"`
	HourlyRate            float64                     `gorm:"type:numeric(10,2)" json:"hourly_rate"`
	DailyRate             float64                     `gorm:"type:numeric(10,2)" json:"daily_rate"`
	IsAvailable           bool                        `gorm:"not null" json:"is_available"`
	VerificationStatus    VerificationStatus          `gorm:"type:text;not null;index" json:"verification_status"`
	RejectionReason       string                      `gorm:"type:text" json:"rejection_reason,omitempty"`
	VerificationDocuments datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"verification_documents,omitempty"`
	AverageRating         float64                     `gorm:"type:numeric(3,2);not null" json:"average_rating"`
	TotalReviews          int                         `gorm:"not null" json:"total_reviews"`
	TotalTours            int                         `gorm:"not null" json:"total_tours"`
	CreatedAt             time.Time                   `gorm:"type:timestamptz;not null;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time                   `gorm:"type:timestamptz;not null;autoUpdateTime" json:"updated_at"`
}

func (Guide) TableName() string { return TableGuides }

type GuideSpecialty struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GuideID          uuid.UUID `gorm:"type:uuid;not null;index" json:"guide_id"`
	Specialty        string    `gorm:"type:text;not null" json:"specialty"`
	YearsExperience  int       `json:"years_experience"`
	CertificationURL string    `gorm:"type:text" json:"certification_url,omitempty"`
}

func (GuideSpecialty) TableName() string { return TableGuideSpecialties }

type GuideLanguage struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	GuideID     uuid.UUID   `gorm:"type:uuid;not null;index" json:"guide_id"`
	Language    string      `gorm:"type:text;not null" json:"language"`
	Proficiency Proficiency `gorm:"type:text;not null" json:"proficiency"`
}

func (GuideLanguage) TableName() string { return TableGuideLanguages }

// Tour is a listing offered by a guide. Deactivated tours stay in the table.
type Tour struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	GuideID        uuid.UUID                   `gorm:"type:uuid;not null;index" json:"guide_id"`
	Title          string                      `gorm:"type:text;not null" json:"title"`
	Description    string                      `gorm:"type:text" json:"description"`
	Category       string                      `gorm:"type:text;index" json:"category"`
	DurationHours  int                         `gorm:"not null" json:"duration_hours"`
	MaxGroupSize   int                         `gorm:"not null" json:"max_group_size"`
	PricePerPerson float64                     `gorm:"type:numeric(10,2);not null" json:"price_per_person"`
	Highlights     datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"highlights,omitempty"`
	MeetingPoint   string                      `gorm:"type:text" json:"meeting_point"`
	IsActive       bool                        `gorm:"not null;index" json:"is_active"`
	CreatedAt      time.Time                   `gorm:"type:timestamptz;not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time                   `gorm:"type:timestamptz;not null;autoUpdateTime" json:"updated_at"`
}

func (Tour) TableName() string { return TableTours }

type TourImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TourID    uuid.UUID `gorm:"type:uuid;not null;index" json:"tour_id"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	IsPrimary bool      `gorm:"not null" json:"is_primary"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;autoCreateTime" json:"created_at"`
}

func (TourImage) TableName() string { return TableTourImages }

type Booking struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	TourID          uuid.UUID     `gorm:"type:uuid;not null;index" json:"tour_id"`
	TouristID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"tourist_id"`
	GuideID         uuid.UUID     `gorm:"type:uuid;not null;index" json:"guide_id"`
	BookingDate     time.Time     `gorm:"type:timestamptz;not null" json:"booking_date"`
	NumberOfPeople  int           `gorm:"not null" json:"number_of_people"`
	TotalAmount     float64       `gorm:"type:numeric(10,2);not null" json:"total_amount"`
	Status          BookingStatus `gorm:"type:text;not null;index" json:"status"`
	PaymentStatus   PaymentStatus `gorm:"type:text;not null" json:"payment_status"`
	SpecialRequests string        `gorm:"type:text" json:"special_requests,omitempty"`
	CreatedAt       time.Time     `gorm:"type:timestamptz;not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"type:timestamptz;not null;autoUpdateTime" json:"updated_at"`
}

func (Booking) TableName() string { return TableBookings }

type Payment struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID         uuid.UUID     `gorm:"type:uuid;not null;index" json:"booking_id"`
	Amount            float64       `gorm:"type:numeric(10,2);not null" json:"amount"`
	Status            PaymentStatus `gorm:"type:text;not null" json:"status"`
	ProviderReference string        `gorm:"type:text" json:"provider_reference,omitempty"`
	CreatedAt         time.Time     `gorm:"type:timestamptz;not null;autoCreateTime" json:"created_at"`
}

func (Payment) TableName() string { return TablePayments }

// Review is a tourist's rating of a completed booking. One review per booking.
type Review struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"booking_id"`
	TouristID uuid.UUID `gorm:"type:uuid;not null;index" json:"tourist_id"`
	GuideID   uuid.UUID `gorm:"type:uuid;not null;index" json:"guide_id"`
	TourID    uuid.UUID `gorm:"type:uuid;not null;index" json:"tour_id"`
	Rating    int       `gorm:"not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;autoCreateTime" json:"created_at"`
}

func (Review) TableName() string { return TableReviews }

type Message struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"sender_id"`
	ReceiverID uuid.UUID  `gorm:"type:uuid;not null;index" json:"receiver_id"`
	BookingID  *uuid.UUID `gorm:"type:uuid;index" json:"booking_id,omitempty"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	IsRead     bool       `gorm:"not null" json:"is_read"`
	CreatedAt  time.Time  `gorm:"type:timestamptz;not null;autoCreateTime" json:"created_at"`
}

func (Message) TableName() string { return TableMessages }

// NewsPost is an entry of the public news feed. Unpublished posts are visible to admins only.
type NewsPost struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID    uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Body        string    `gorm:"type:text;not null" json:"body"`
	IsPublished bool      `gorm:"not null;index" json:"is_published"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;not null;autoUpdateTime" json:"updated_at"`
}

func (NewsPost) TableName() string { return TableNewsPosts }

type NewsComment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;index" json:"post_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;autoCreateTime" json:"created_at"`
}

func (NewsComment) TableName() string { return TableNewsComments }

// NewsLike records that a user liked a post. A user likes a post at most once.
type NewsLike struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_news_likes_post_user" json:"post_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_news_likes_post_user;index" json:"user_id"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;autoCreateTime" json:"created_at"`
}

func (NewsLike) TableName() string { return TableNewsLikes }

// NewsStats counts the likes and comments of one post.
type NewsStats struct {
	Likes    int64 `json:"like_count"`
	Comments int64 `json:"comment_count"`
}

// ConversationSummary describes one conversation partner as seen by a user.
type ConversationSummary struct {
	PartnerID     uuid.UUID `json:"partner_id"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	Unread        int64     `json:"unread"`
}

// RatingCounts holds the number of reviews per star value; index 0 is one star.
type RatingCounts [5]int64

// Count returns the total number of reviews.
func (c RatingCounts) Count() int64 {
	var n int64
	for _, v := range c {
		n += v
	}
	return n
}

// Sum returns the sum of all ratings.
func (c RatingCounts) Sum() int64 {
	var s int64
	for i, v := range c {
		s += int64(i+1) * v
	}
	return s
}
