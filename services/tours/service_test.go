package tours

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"seatrail/pkg/apperr"
	"seatrail/services/marketplace"
	"seatrail/services/marketplace/markettest"
	"seatrail/services/marketplace/memstore"
)

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	svc, err := NewService(store, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return svc, store
}

var walk = TourInput{Title: "Harbour walk", DurationHours: 2, MaxGroupSize: 8, PricePerPerson: 20}

func TestCreateAndDeactivateKeepTotalTours(t *testing.T) {
	svc, store := newService(t)
	guideUser, guide := markettest.Guide(t, store, marketplace.VerificationVerified)
	ctx := context.Background()

	first, err := svc.Create(ctx, guideUser.ID, walk)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, guideUser.ID, walk); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got := markettest.GetGuide(t, store, guide.ID).TotalTours; got != 2 {
		t.Fatalf("TotalTours = %d, want 2", got)
	}

	for i := 0; i < 2; i++ {
		tour, err := svc.Deactivate(ctx, guideUser.ID, first.ID)
		if err != nil {
			t.Fatalf("Deactivate() #%d error = %v", i, err)
		}
		if tour.IsActive {
			t.Fatal("tour still active")
		}
	}
	if got := markettest.GetGuide(t, store, guide.ID).TotalTours; got != 1 {
		t.Fatalf("TotalTours = %d, want 1", got)
	}
	if store.Count(marketplace.TableTours) != 2 {
		t.Fatal("deactivate removed the row")
	}
}

func TestOwnershipChecks(t *testing.T) {
	svc, store := newService(t)
	owner, guide := markettest.Guide(t, store, marketplace.VerificationVerified)
	otherGuide, _ := markettest.Guide(t, store, marketplace.VerificationVerified)
	tourist := markettest.User(t, store, marketplace.RoleUser)
	tour := markettest.Tour(t, store, guide)
	ctx := context.Background()

	if _, err := svc.Create(ctx, tourist.ID, walk); !apperr.Is(err, apperr.KindPolicy) {
		t.Fatalf("Create(tourist) error = %v, want policy violation", err)
	}
	if _, err := svc.Deactivate(ctx, otherGuide.ID, tour.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("Deactivate(other guide) error = %v, want not found", err)
	}
	if _, err := svc.AddImage(ctx, otherGuide.ID, tour.ID, "https://media.example/x.jpg", false); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("AddImage(other guide) error = %v, want not found", err)
	}
	if _, err := svc.AddImage(ctx, owner.ID, tour.ID, "not a url", false); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("AddImage(bad url) error = %v, want invalid", err)
	}
	if _, err := svc.AddImage(ctx, owner.ID, tour.ID, "https://media.example/x.jpg", true); err != nil {
		t.Fatalf("AddImage() error = %v", err)
	}

	detail, err := svc.Get(ctx, tour.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(detail.Images) != 1 || !detail.Images[0].IsPrimary {
		t.Fatalf("images = %+v", detail.Images)
	}
}

func TestListPublicOnlyVerifiedActive(t *testing.T) {
	svc, store := newService(t)
	_, verified := markettest.Guide(t, store, marketplace.VerificationVerified)
	_, pending := markettest.Guide(t, store, marketplace.VerificationPending)
	_, rejected := markettest.Guide(t, store, marketplace.VerificationRejected)
	ctx := context.Background()

	visible := markettest.Tour(t, store, verified)
	hidden := markettest.Tour(t, store, verified)
	markettest.Tour(t, store, pending)
	rejectedTour := markettest.Tour(t, store, rejected)

	err := store.InTx(ctx, func(tx marketplace.Tx) error {
		hidden.IsActive = false
		return tx.UpdateTour(ctx, &hidden)
	})
	if err != nil {
		t.Fatal(err)
	}

	list, err := svc.ListPublic(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != visible.ID {
		t.Fatalf("ListPublic() = %v, want only %s", list, visible.ID)
	}

	for _, id := range []marketplace.Tour{hidden, rejectedTour} {
		if _, err := svc.Get(ctx, id.ID, true); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("Get(%s, public) error = %v, want not found", id.ID, err)
		}
	}
	if _, err := svc.Get(ctx, rejectedTour.ID, false); err != nil {
		t.Fatalf("Get(%s) error = %v", rejectedTour.ID, err)
	}

	byGuide, err := svc.ListByGuide(ctx, verified.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(byGuide) != 2 {
		t.Fatalf("ListByGuide() = %d tours, want 2", len(byGuide))
	}
}

func TestUpdate(t *testing.T) {
	svc, store := newService(t)
	owner, guide := markettest.Guide(t, store, marketplace.VerificationVerified)
	otherGuide, _ := markettest.Guide(t, store, marketplace.VerificationVerified)
	tour := markettest.Tour(t, store, guide)
	ctx := context.Background()

	title, price, size := "  Night market  ", 30.5, 4
	got, err := svc.Update(ctx, owner.ID, tour.ID, TourUpdate{Title: &title, PricePerPerson: &price, MaxGroupSize: &size})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Title != "Night market" || got.PricePerPerson != 30.5 || got.MaxGroupSize != 4 || got.DurationHours != tour.DurationHours {
		t.Fatalf("Update() = %+v", got)
	}

	zero, blank := 0, " "
	tests := []struct {
		name  string
		actor marketplace.User
		in    TourUpdate
		want  apperr.Kind
	}{
		{name: "other guide", actor: otherGuide, in: TourUpdate{Title: &title}, want: apperr.KindNotFound},
		{name: "blank title", actor: owner, in: TourUpdate{Title: &blank}, want: apperr.KindInvalid},
		{name: "empty group", actor: owner, in: TourUpdate{MaxGroupSize: &zero}, want: apperr.KindInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, tt.actor.ID, tour.ID, tt.in)
			if got := apperr.KindOf(err); err == nil || got != tt.want {
				t.Fatalf("Update() error = %v (kind %v), want %v", err, got, tt.want)
			}
		})
	}

	stored, err := svc.Get(ctx, tour.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Title != "Night market" || stored.MaxGroupSize != 4 {
		t.Fatalf("stored tour = %+v", stored.Tour)
	}
}

func TestRemoveImage(t *testing.T) {
	svc, store := newService(t)
	owner, guide := markettest.Guide(t, store, marketplace.VerificationVerified)
	otherGuide, _ := markettest.Guide(t, store, marketplace.VerificationVerified)
	tour := markettest.Tour(t, store, guide)
	other := markettest.Tour(t, store, guide)
	img := markettest.TourImage(t, store, tour, "https://media.example/a.jpg")
	foreign := markettest.TourImage(t, store, other, "https://media.example/b.jpg")
	ctx := context.Background()

	if err := svc.RemoveImage(ctx, otherGuide.ID, tour.ID, img.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("RemoveImage(other guide) error = %v, want not found", err)
	}
	if err := svc.RemoveImage(ctx, owner.ID, tour.ID, foreign.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("RemoveImage(image of another tour) error = %v, want not found", err)
	}
	if err := svc.RemoveImage(ctx, owner.ID, tour.ID, img.ID); err != nil {
		t.Fatalf("RemoveImage() error = %v", err)
	}
	if store.Count(marketplace.TableTourImages) != 1 {
		t.Fatalf("tour images = %d, want 1", store.Count(marketplace.TableTourImages))
	}
}
