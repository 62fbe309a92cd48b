package api

import (
	"github.com/rs/zerolog"

	"seatrail/pkg/bus"
	"seatrail/services/admin"
	"seatrail/services/bookings"
	"seatrail/services/guides"
	"seatrail/services/marketplace"
	"seatrail/services/messaging"
	"seatrail/services/news"
	"seatrail/services/reviews"
	"seatrail/services/tours"
)

// NewServices builds every domain service on one store. pub may be nil.
func NewServices(store marketplace.Store, pub bus.Publisher, log zerolog.Logger) (Services, error) {
	var (
		svc Services
		err error
	)
	if svc.Admin, err = admin.NewService(store, pub, log); err != nil {
		return Services{}, err
	}
	if svc.Guides, err = guides.NewService(store, pub, log); err != nil {
		return Services{}, err
	}
	if svc.Reviews, err = reviews.NewService(store, pub, log); err != nil {
		return Services{}, err
	}
	if svc.Tours, err = tours.NewService(store, log); err != nil {
		return Services{}, err
	}
	if svc.Bookings, err = bookings.NewService(store, log); err != nil {
		return Services{}, err
	}
	if svc.Messaging, err = messaging.NewService(store, log); err != nil {
		return Services{}, err
	}
	if svc.News, err = news.NewService(store, log); err != nil {
		return Services{}, err
	}
	return svc, nil
}
