// Package markettest seeds marketplace stores for tests.
package markettest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"seatrail/services/marketplace"
)

func write(t testing.TB, s marketplace.Store, fn func(ctx context.Context, tx marketplace.Tx) error) {
	t.Helper()
	ctx := context.Background()
	if err := s.InTx(ctx, func(tx marketplace.Tx) error { return fn(ctx, tx) }); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func User(t testing.TB, s marketplace.Store, role marketplace.Role) marketplace.User {
	t.Helper()
	id := uuid.New()
	u := marketplace.User{
		ID:        id,
		Email:     id.String() + "@example.com",
		FirstName: "Test",
		LastName:  string(role),
		Role:      role,
		IsActive:  true,
	}
	write(t, s, func(ctx context.Context, tx marketplace.Tx) error { return tx.CreateUser(ctx, &u) })
	return u
}

// Guide creates a GUIDE user and a profile in the given verification state.
func Guide(t testing.TB, s marketplace.Store, status marketplace.VerificationStatus) (marketplace.User, marketplace.Guide) {
	t.Helper()
	u := User(t, s, marketplace.RoleGuide)
	g := marketplace.Guide{
		ID:                 uuid.New(),
		UserID:             u.ID,
		Bio:                "local guide",
		IsAvailable:        true,
		VerificationStatus: status,
	}
	write(t, s, func(ctx context.Context, tx marketplace.Tx) error { return tx.CreateGuide(ctx, &g) })
	return u, g
}

func Tour(t testing.TB, s marketplace.Store, guide marketplace.Guide) marketplace.Tour {
	t.Helper()
	tour := marketplace.Tour{
		ID:             uuid.New(),
		GuideID:        guide.ID,
		Title:          "Old town walk",
		DurationHours:  3,
		MaxGroupSize:   10,
		PricePerPerson: 25,
		IsActive:       true,
	}
	write(t, s, func(ctx context.Context, tx marketplace.Tx) error { return tx.CreateTour(ctx, &tour) })
	return tour
}

func TourImage(t testing.TB, s marketplace.Store, tour marketplace.Tour, url string) marketplace.TourImage {
	t.Helper()
	img := marketplace.TourImage{ID: uuid.New(), TourID: tour.ID, URL: url}
	write(t, s, func(ctx context.Context, tx marketplace.Tx) error { return tx.CreateTourImage(ctx, &img) })
	return img
}

func Booking(t testing.TB, s marketplace.Store, tour marketplace.Tour, tourist marketplace.User, status marketplace.BookingStatus) marketplace.Booking {
	t.Helper()
	b := marketplace.Booking{
		ID:             uuid.New(),
		TourID:         tour.ID,
		TouristID:      tourist.ID,
		GuideID:        tour.GuideID,
		BookingDate:    time.Now().UTC().Add(48 * time.Hour),
		NumberOfPeople: 2,
		TotalAmount:    tour.PricePerPerson * 2,
		Status:         status,
		PaymentStatus:  marketplace.PaymentPending,
	}
	write(t, s, func(ctx context.Context, tx marketplace.Tx) error { return tx.CreateBooking(ctx, &b) })
	return b
}

func Payment(t testing.TB, s marketplace.Store, b marketplace.Booking) marketplace.Payment {
	t.Helper()
	p := marketplace.Payment{ID: uuid.New(), BookingID: b.ID, Amount: b.TotalAmount, Status: marketplace.PaymentPaid}
	write(t, s, func(ctx context.Context, tx marketplace.Tx) error { return tx.CreatePayment(ctx, &p) })
	return p
}

// Review inserts a review row directly, without touching the guide's cached rating.
func Review(t testing.TB, s marketplace.Store, b marketplace.Booking, rating int) marketplace.Review {
	t.Helper()
	r := marketplace.Review{
		ID:        uuid.New(),
		BookingID: b.ID,
		TouristID: b.TouristID,
		GuideID:   b.GuideID,
		TourID:    b.TourID,
		Rating:    rating,
	}
	write(t, s, func(ctx context.Context, tx marketplace.Tx) error { return tx.CreateReview(ctx, &r) })
	return r
}

func Message(t testing.TB, s marketplace.Store, from, to marketplace.User, booking *uuid.UUID, content string) marketplace.Message {
	t.Helper()
	msg := marketplace.Message{
		ID:         uuid.New(),
		SenderID:   from.ID,
		ReceiverID: to.ID,
		BookingID:  booking,
		Content:    content,
	}
	write(t, s, func(ctx context.Context, tx marketplace.Tx) error { return tx.CreateMessage(ctx, &msg) })
	return msg
}

// Publisher records published events in memory.
type Publisher struct {
	Events []Event
	Err    error
}

type Event struct {
	Subject string
	Payload any
}

func (p *Publisher) Publish(_ context.Context, subj string, v any) error {
	p.Events = append(p.Events, Event{Subject: subj, Payload: v})
	return p.Err
}

// Subjects returns the subjects published so far, in order.
func (p *Publisher) Subjects() []string {
	out := make([]string, 0, len(p.Events))
	for _, e := range p.Events {
		out = append(out, e.Subject)
	}
	return out
}

// GetGuide reads a guide row outside any service.
func GetGuide(t testing.TB, s marketplace.Store, id uuid.UUID) marketplace.Guide {
	t.Helper()
	var g marketplace.Guide
	write(t, s, func(ctx context.Context, tx marketplace.Tx) error {
		var err error
		g, err = tx.GetGuide(ctx, id)
		return err
	})
	return g
}


// NewsPost creates a post by author.
func NewsPost(t testing.TB, s marketplace.Store, author marketplace.User, published bool) marketplace.NewsPost {
	t.Helper()
	p := marketplace.NewsPost{
		ID:          uuid.New(),
		AuthorID:    author.ID,
		Title:       "Season opening",
		Body:        "Tours resume next week.",
		IsPublished: published,
	}
	write(t, s, func(ctx context.Context, tx marketplace.Tx) error { return tx.CreateNewsPost(ctx, &p) })
	return p
}

func NewsComment(t testing.TB, s marketplace.Store, post marketplace.NewsPost, by marketplace.User, text string) marketplace.NewsComment {
	t.Helper()
	c := marketplace.NewsComment{ID: uuid.New(), PostID: post.ID, UserID: by.ID, Text: text}
	write(t, s, func(ctx context.Context, tx marketplace.Tx) error { return tx.CreateNewsComment(ctx, &c) })
	return c
}

func NewsLike(t testing.TB, s marketplace.Store, post marketplace.NewsPost, by marketplace.User) marketplace.NewsLike {
	t.Helper()
	l := marketplace.NewsLike{ID: uuid.New(), PostID: post.ID, UserID: by.ID}
	write(t, s, func(ctx context.Context, tx marketplace.Tx) error { return tx.CreateNewsLike(ctx, &l) })
	return l
}
