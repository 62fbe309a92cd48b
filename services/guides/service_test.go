package guides

import (
	"context"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"seatrail/pkg/apperr"
	"seatrail/pkg/bus"
	"seatrail/services/marketplace"
	"seatrail/services/marketplace/markettest"
	"seatrail/services/marketplace/memstore"
)

func newService(t *testing.T) (*Service, *memstore.Store, *markettest.Publisher) {
	t.Helper()
	store := memstore.New()
	pub := &markettest.Publisher{}
	svc, err := NewService(store, pub, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return svc, store, pub
}

func TestVerificationLifecycle(t *testing.T) {
	svc, store, pub := newService(t)
	admin := markettest.User(t, store, marketplace.RoleAdmin)
	_, guide := markettest.Guide(t, store, marketplace.VerificationPending)
	ctx := context.Background()

	steps := []struct {
		name       string
		run        func() (marketplace.Guide, error)
		wantStatus marketplace.VerificationStatus
		wantReason string
		wantKind   apperr.Kind
		wantErr    bool
	}{
		{
			name:       "verify pending",
			run:        func() (marketplace.Guide, error) { return svc.Verify(ctx, admin.ID, guide.ID) },
			wantStatus: marketplace.VerificationVerified,
		},
		{
			name:     "verify twice",
			run:      func() (marketplace.Guide, error) { return svc.Verify(ctx, admin.ID, guide.ID) },
			wantKind: apperr.KindConflict,
			wantErr:  true,
		},
		{
			name:       "reject verified",
			run:        func() (marketplace.Guide, error) { return svc.Reject(ctx, admin.ID, guide.ID, " blurry documents ") },
			wantStatus: marketplace.VerificationRejected,
			wantReason: "blurry documents",
		},
		{
			name:     "reject twice",
			run:      func() (marketplace.Guide, error) { return svc.Reject(ctx, admin.ID, guide.ID, "again") },
			wantKind: apperr.KindConflict,
			wantErr:  true,
		},
		{
			name:       "verify rejected clears reason",
			run:        func() (marketplace.Guide, error) { return svc.Verify(ctx, admin.ID, guide.ID) },
			wantStatus: marketplace.VerificationVerified,
		},
		{
			name:     "unknown guide",
			run:      func() (marketplace.Guide, error) { return svc.Verify(ctx, admin.ID, uuid.New()) },
			wantKind: apperr.KindNotFound,
			wantErr:  true,
		},
	}

	for _, step := range steps {
		got, err := step.run()
		if step.wantErr {
			if kind := apperr.KindOf(err); err == nil || kind != step.wantKind {
				t.Fatalf("%s: error = %v (kind %v), want %v", step.name, err, kind, step.wantKind)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: error = %v", step.name, err)
		}
		if got.VerificationStatus != step.wantStatus || got.RejectionReason != step.wantReason {
			t.Fatalf("%s: guide = %s/%q, want %s/%q", step.name, got.VerificationStatus, got.RejectionReason, step.wantStatus, step.wantReason)
		}
		stored := markettest.GetGuide(t, store, guide.ID)
		if stored.VerificationStatus != step.wantStatus {
			t.Fatalf("%s: stored status = %s", step.name, stored.VerificationStatus)
		}
	}

	want := []string{bus.SubjectGuideVerification, bus.SubjectGuideVerification, bus.SubjectGuideVerification}
	if got := pub.Subjects(); !reflect.DeepEqual(got, want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	last := pub.Events[2].Payload.(marketplace.GuideVerificationEvent)
	if last.From != marketplace.VerificationRejected || last.To != marketplace.VerificationVerified {
		t.Fatalf("last event = %+v", last)
	}
}

func TestCreateProfile(t *testing.T) {
	svc, store, _ := newService(t)
	user := markettest.User(t, store, marketplace.RoleUser)
	ctx := context.Background()

	p, err := svc.CreateProfile(ctx, user.ID, ProfileInput{
		Bio:         "Mountain guide",
		HourlyRate:  30,
		Specialties: []SpecialtyInput{{Specialty: "hiking", YearsExperience: 5}},
		Languages:   []LanguageInput{{Language: "en", Proficiency: "fluent"}},
	})
	if err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}
	if p.VerificationStatus != marketplace.VerificationPending {
		t.Fatalf("status = %s, want PENDING", p.VerificationStatus)
	}
	if len(p.Specialties) != 1 || len(p.Languages) != 1 || p.Languages[0].Proficiency != marketplace.ProficiencyFluent {
		t.Fatalf("profile = %+v", p)
	}

	loaded, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.Specialties, p.Specialties) {
		t.Fatalf("loaded specialties = %+v, want %+v", loaded.Specialties, p.Specialties)
	}

	if _, err := svc.CreateProfile(ctx, user.ID, ProfileInput{}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second CreateProfile() error = %v, want conflict", err)
	}

	other := markettest.User(t, store, marketplace.RoleUser)
	_, err = svc.CreateProfile(ctx, other.ID, ProfileInput{Languages: []LanguageInput{{Language: "fr", Proficiency: "excellent"}}})
	if !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("CreateProfile(bad proficiency) error = %v, want invalid", err)
	}
	if store.Count(marketplace.TableGuides) != 1 {
		t.Fatal("profile written despite invalid language")
	}
}

func TestPublicReadsHideUnverified(t *testing.T) {
	svc, store, _ := newService(t)
	_, verified := markettest.Guide(t, store, marketplace.VerificationVerified)
	_, pending := markettest.Guide(t, store, marketplace.VerificationPending)
	markettest.Guide(t, store, marketplace.VerificationRejected)
	ctx := context.Background()

	list, err := svc.ListVerified(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != verified.ID {
		t.Fatalf("ListVerified() = %v", list)
	}
	if _, err := svc.GetPublic(ctx, pending.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("GetPublic(pending) error = %v, want not found", err)
	}

	all, err := svc.ListByStatus(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("ListByStatus(all) = %d guides, want 3", len(all))
	}
}

func TestUpdateProfileReplacesDetails(t *testing.T) {
	svc, store, _ := newService(t)
	user := markettest.User(t, store, marketplace.RoleUser)
	stranger := markettest.User(t, store, marketplace.RoleUser)
	ctx := context.Background()

	created, err := svc.CreateProfile(ctx, user.ID, ProfileInput{
		Bio:         "harbour tours",
		Specialties: []SpecialtyInput{{Specialty: "history"}, {Specialty: "food"}},
		Languages:   []LanguageInput{{Language: "en", Proficiency: "native"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	off := false
	updated, err := svc.UpdateProfile(ctx, user.ID, created.ID, ProfileInput{
		Bio:         " night walks ",
		HourlyRate:  40,
		IsAvailable: &off,
		Specialties: []SpecialtyInput{{Specialty: "architecture", YearsExperience: 3}},
		Languages:   []LanguageInput{{Language: "de", Proficiency: "fluent"}, {Language: "en", Proficiency: "native"}},
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.Bio != "night walks" || updated.HourlyRate != 40 || updated.IsAvailable {
		t.Fatalf("UpdateProfile() guide = %+v", updated.Guide)
	}
	if updated.VerificationStatus != marketplace.VerificationPending {
		t.Fatalf("verification status = %s, want PENDING", updated.VerificationStatus)
	}
	if store.Count(marketplace.TableGuideSpecialties) != 1 || store.Count(marketplace.TableGuideLanguages) != 2 {
		t.Fatalf("specialties = %d, languages = %d; want 1, 2",
			store.Count(marketplace.TableGuideSpecialties), store.Count(marketplace.TableGuideLanguages))
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Specialties) != 1 || got.Specialties[0].Specialty != "architecture" {
		t.Fatalf("specialties = %+v", got.Specialties)
	}

	if _, err := svc.UpdateProfile(ctx, stranger.ID, created.ID, ProfileInput{}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("UpdateProfile(stranger) error = %v, want not found", err)
	}
	bad := ProfileInput{Languages: []LanguageInput{{Language: "fr", Proficiency: "some"}}}
	if _, err := svc.UpdateProfile(ctx, user.ID, created.ID, bad); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("UpdateProfile(bad proficiency) error = %v, want invalid", err)
	}
	if store.Count(marketplace.TableGuideLanguages) != 2 {
		t.Fatal("failed update was not rolled back")
	}
}
