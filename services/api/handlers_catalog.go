package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"seatrail/pkg/apperr"
	"seatrail/services/guides"
	"seatrail/services/media"
	"seatrail/services/reviews"
	"seatrail/services/tours"
)

func (a *API) handleCreateGuide(w http.ResponseWriter, r *http.Request) {
	var in guides.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	profile, err := a.svc.Guides.CreateProfile(r.Context(), actor(r), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"guide": profile})
}

func (a *API) handleListGuides(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Guides.ListVerified(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"guides": orEmpty(list)})
}

func (a *API) handleGetGuide(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	profile, err := a.svc.Guides.GetPublic(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"guide": profile})
}

func (a *API) handleGuideReviews(w http.ResponseWriter, r *http.Request) {
	id, err := a.publicGuideID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	list, err := a.svc.Reviews.ListByGuide(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reviews": orEmpty(list)})
}

func (a *API) handleGuideRating(w http.ResponseWriter, r *http.Request) {
	id, err := a.publicGuideID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rating, err := a.svc.Reviews.GuideRating(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"rating": rating})
}

// publicGuideID reads the {id} path parameter and reports guides hidden from the
// public catalog as missing.
func (a *API) publicGuideID(r *http.Request) (uuid.UUID, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := a.svc.Guides.GetPublic(r.Context(), id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// publicTourID is publicGuideID for tours.
func (a *API) publicTourID(r *http.Request) (uuid.UUID, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := a.svc.Tours.Get(r.Context(), id, true); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (a *API) handleUpdateGuide(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var in guides.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	profile, err := a.svc.Guides.UpdateProfile(r.Context(), actor(r), id, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"guide": profile})
}

func (a *API) handleCreateTour(w http.ResponseWriter, r *http.Request) {
	var in tours.TourInput
	if err := decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	tour, err := a.svc.Tours.Create(r.Context(), actor(r), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"tour": tour})
}

func (a *API) handleListTours(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Tours.ListPublic(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tours": orEmpty(list)})
}

func (a *API) handleGetTour(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	detail, err := a.svc.Tours.Get(r.Context(), id, true)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tour": detail})
}

func (a *API) handleDeactivateTour(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	tour, err := a.svc.Tours.Deactivate(r.Context(), actor(r), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tour": tour})
}

func (a *API) handleAddTourImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req struct {
		URL       string `json:"url"`
		IsPrimary bool   `json:"is_primary"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	img, err := a.svc.Tours.AddImage(r.Context(), actor(r), id, req.URL, req.IsPrimary)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"image": img})
}

func (a *API) handleUpdateTour(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var in tours.TourUpdate
	if err := decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	tour, err := a.svc.Tours.Update(r.Context(), actor(r), id, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tour": tour})
}

func (a *API) handleRemoveTourImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	imageID, err := pathID(r, "imageID")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.Tours.RemoveImage(r.Context(), actor(r), id, imageID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadTourImage takes the raw image as the request body.
func (a *API) handleUploadTourImage(w http.ResponseWriter, r *http.Request) {
	if a.svc.Uploader == nil {
		respondError(w, http.StatusNotImplemented, errors.New("media uploads are not configured"))
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	primary, err := queryBool(r, "primary")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, media.MaxImageSize+1))
	if err != nil {
		a.fail(w, r, apperr.Invalid("image exceeds %d bytes", media.MaxImageSize))
		return
	}
	img, err := a.svc.Uploader.UploadTourImage(r.Context(), actor(r), id, data, primary != nil && *primary)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"image": img})
}

func (a *API) handleTourReviews(w http.ResponseWriter, r *http.Request) {
	id, err := a.publicTourID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	list, err := a.svc.Reviews.ListByTour(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reviews": orEmpty(list)})
}

func (a *API) handleTourRating(w http.ResponseWriter, r *http.Request) {
	id, err := a.publicTourID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rating, err := a.svc.Reviews.TourRating(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"rating": rating})
}

func (a *API) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var in reviews.ReviewInput
	if err := decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	in.TouristID = actor(r)
	review, err := a.svc.Reviews.RecordReview(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"review": review})
}
