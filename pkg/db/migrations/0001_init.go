package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

type User struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email             string    `gorm:"type:text;uniqueIndex;not null"`
	FirstName         string    `gorm:"type:text;not null"`
	LastName          string    `gorm:"type:text;not null"`
	ProfilePictureURL string    `gorm:"type:text"`
	Role              string    `gorm:"type:text;not null;default:USER"`
	IsActive          bool      `gorm:"not null;default:true"`
	IsVerified        bool      `gorm:"not null;default:false"`
	CreatedAt         time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt         time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

type Guide struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID                uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null"`
	Bio                   string         `gorm:"type:text"`
	HourlyRate            float64        `gorm:"type:numeric(10,2)"`
	DailyRate             float64        `gorm:"type:numeric(10,2)"`
	IsAvailable           bool           `gorm:"not null;default:true"`
	VerificationStatus    string         `gorm:"type:text;not null;default:PENDING;index"`
	RejectionReason       string         `gorm:"type:text"`
	VerificationDocuments datatypes.JSON `gorm:"type:jsonb"`
	AverageRating         float64        `gorm:"type:numeric(3,2);not null;default:0"`
	TotalReviews          int            `gorm:"not null;default:0"`
	TotalTours            int            `gorm:"not null;default:0"`
	CreatedAt             time.Time      `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt             time.Time      `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	User                  User           `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

type GuideSpecialty struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	GuideID          uuid.UUID `gorm:"type:uuid;not null;index"`
	Specialty        string    `gorm:"type:text;not null"`
	YearsExperience  int
	CertificationURL string `gorm:"type:text"`
	Guide            Guide  `gorm:"foreignKey:GuideID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type GuideLanguage struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	GuideID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Language    string    `gorm:"type:text;not null"`
	Proficiency string    `gorm:"type:text;not null"`
	Guide       Guide     `gorm:"foreignKey:GuideID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type Tour struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey"`
	GuideID        uuid.UUID      `gorm:"type:uuid;not null;index"`
	Title          string         `gorm:"type:text;not null"`
	Description    string         `gorm:"type:text"`
	Category       string         `gorm:"type:text;index"`
	DurationHours  int            `gorm:"not null"`
	MaxGroupSize   int            `gorm:"not null"`
	PricePerPerson float64        `gorm:"type:numeric(10,2);not null"`
	Highlights     datatypes.JSON `gorm:"type:jsonb"`
	MeetingPoint   string         `gorm:"type:text"`
	IsActive       bool           `gorm:"not null;default:true;index"`
	CreatedAt      time.Time      `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	Guide          Guide          `gorm:"foreignKey:GuideID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

type TourImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TourID    uuid.UUID `gorm:"type:uuid;not null;index"`
	URL       string    `gorm:"type:text;not null"`
	IsPrimary bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Tour      Tour      `gorm:"foreignKey:TourID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type Booking struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	TourID          uuid.UUID `gorm:"type:uuid;not null;index"`
	TouristID       uuid.UUID `gorm:"type:uuid;not null;index"`
	GuideID         uuid.UUID `gorm:"type:uuid;not null;index"`
	BookingDate     time.Time `gorm:"type:timestamptz;not null"`
	NumberOfPeople  int       `gorm:"not null"`
	TotalAmount     float64   `gorm:"type:numeric(10,2);not null"`
	Status          string    `gorm:"type:text;not null;default:PENDING;index"`
	PaymentStatus   string    `gorm:"type:text;not null;default:PENDING"`
	SpecialRequests string    `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt       time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	Tour            Tour      `gorm:"foreignKey:TourID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Tourist         User      `gorm:"foreignKey:TouristID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Guide           Guide     `gorm:"foreignKey:GuideID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

type Payment struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookingID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Amount            float64   `gorm:"type:numeric(10,2);not null"`
	Status            string    `gorm:"type:text;not null"`
	ProviderReference string    `gorm:"type:text"`
	CreatedAt         time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Booking           Booking   `gorm:"foreignKey:BookingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

type Review struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookingID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	TouristID uuid.UUID `gorm:"type:uuid;not null;index"`
	GuideID   uuid.UUID `gorm:"type:uuid;not null;index"`
	TourID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Rating    int       `gorm:"not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5"`
	Comment   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Booking   Booking   `gorm:"foreignKey:BookingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Tourist   User      `gorm:"foreignKey:TouristID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Guide     Guide     `gorm:"foreignKey:GuideID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Tour      Tour      `gorm:"foreignKey:TourID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

type Message struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SenderID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	ReceiverID uuid.UUID  `gorm:"type:uuid;not null;index"`
	BookingID  *uuid.UUID `gorm:"type:uuid;index"`
	Content    string     `gorm:"type:text;not null"`
	IsRead     bool       `gorm:"not null;default:false"`
	CreatedAt  time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Sender     User       `gorm:"foreignKey:SenderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Receiver   User       `gorm:"foreignKey:ReceiverID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Booking    *Booking   `gorm:"foreignKey:BookingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

type Audit struct {
	ID      int64             `gorm:"type:bigserial;primaryKey"`
	Actor   string            `gorm:"type:text;not null"`
	Action  string            `gorm:"type:text;not null;index"`
	Obj     string            `gorm:"type:text"`
	Details datatypes.JSONMap `gorm:"type:jsonb"`
	At      time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime;index"`
}

func (Audit) TableName() string { return "audit" }

func openTx(tx *sql.Tx) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
}

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := openTx(tx)
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).AutoMigrate(
		&User{},
		&Guide{},
		&GuideSpecialty{},
		&GuideLanguage{},
		&Tour{},
		&TourImage{},
		&Booking{},
		&Payment{},
		&Review{},
		&Message{},
		&Audit{},
	)
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := openTx(tx)
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(
		&Audit{},
		&Message{},
		&Review{},
		&Payment{},
		&Booking{},
		&TourImage{},
		&Tour{},
		&GuideLanguage{},
		&GuideSpecialty{},
		&Guide{},
		&User{},
	)
}
