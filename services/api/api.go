package api

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"seatrail/services/admin"
	"seatrail/services/audit"
	"seatrail/services/bookings"
	"seatrail/services/guides"
	"seatrail/services/marketplace"
	"seatrail/services/media"
	"seatrail/services/messaging"
	"seatrail/services/news"
	"seatrail/services/reviews"
	"seatrail/services/tours"
)

// ActorHeader carries the authenticated user id, set by the upstream gateway.
const ActorHeader = "X-User-ID"

// AuditReader lists recent audit entries. Satisfied by *audit.PGStore.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// ImageUploader is satisfied by *media.Uploader.
type ImageUploader interface {
	UploadTourImage(ctx context.Context, actorID, tourID uuid.UUID, data []byte, primary bool) (marketplace.TourImage, error)
}

var _ ImageUploader = (*media.Uploader)(nil)

// Services groups the domain services served over HTTP.
type Services struct {
	Admin     *admin.Service
	Guides    *guides.Service
	Reviews   *reviews.Service
	Tours     *tours.Service
	Bookings  *bookings.Service
	Messaging *messaging.Service
	News      *news.Service

	// Optional.
	Audit    AuditReader
	Uploader ImageUploader
}

// Config controls router behaviour.
type Config struct {
	AllowedOrigins []string
	RequestsPerMin int
	RequestTimeout time.Duration
}

// API wires the domain services to HTTP handlers.
type API struct {
	svc    Services
	config Config
	log    zerolog.Logger
	ready  func(ctx context.Context) error
}

// New validates the services and applies defaults to cfg. ready may be nil.
func New(svc Services, cfg Config, ready func(ctx context.Context) error, log zerolog.Logger) (*API, error) {
	switch {
	case svc.Admin == nil:
		return nil, errors.New("admin service is required")
	case svc.Guides == nil:
		return nil, errors.New("guide service is required")
	case svc.Reviews == nil:
		return nil, errors.New("review service is required")
	case svc.Tours == nil:
		return nil, errors.New("tour service is required")
	case svc.Bookings == nil:
		return nil, errors.New("booking service is required")
	case svc.Messaging == nil:
		return nil, errors.New("messaging service is required")
	case svc.News == nil:
		return nil, errors.New("news service is required")
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = 300
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	return &API{svc: svc, config: cfg, ready: ready, log: log.With().Str("component", "api").Logger()}, nil
}
