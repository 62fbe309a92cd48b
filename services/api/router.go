package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes constructs the chi router containing all API endpoints. Extra middleware, such as
// tracing, wraps every route.
func (a *API) Routes(extra ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	for _, mw := range extra {
		r.Use(mw)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: allowCredentials(a.config.AllowedOrigins),
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", a.handleReady)
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(a.config.RequestTimeout))
		r.Use(httprate.LimitByIP(a.config.RequestsPerMin, time.Minute))

		// Public catalogue.
		r.Get("/guides", a.handleListGuides)
		r.Get("/guides/{id}", a.handleGetGuide)
		r.Get("/guides/{id}/reviews", a.handleGuideReviews)
		r.Get("/guides/{id}/rating", a.handleGuideRating)
		r.Get("/tours", a.handleListTours)
		r.Get("/tours/{id}", a.handleGetTour)
		r.Get("/tours/{id}/reviews", a.handleTourReviews)
		r.Get("/tours/{id}/rating", a.handleTourRating)
		r.Get("/news", a.handleListNews)
		r.Get("/news/{id}", a.handleGetNews)
		r.Get("/news/{id}/comments", a.handleNewsComments)

		r.Group(func(r chi.Router) {
			r.Use(requireActor)

			r.Post("/guides", a.handleCreateGuide)
			r.Put("/guides/{id}", a.handleUpdateGuide)

			r.Post("/tours", a.handleCreateTour)
			r.Patch("/tours/{id}", a.handleUpdateTour)
			r.Delete("/tours/{id}", a.handleDeactivateTour)
			r.Post("/tours/{id}/images", a.handleAddTourImage)
			r.Delete("/tours/{id}/images/{imageID}", a.handleRemoveTourImage)
			r.Post("/tours/{id}/images/upload", a.handleUploadTourImage)

			r.Post("/bookings", a.handleCreateBooking)
			r.Post("/bookings/{id}/confirm", a.handleConfirmBooking)
			r.Post("/bookings/{id}/complete", a.handleCompleteBooking)
			r.Post("/bookings/{id}/cancel", a.handleCancelBooking)
			r.Post("/bookings/{id}/payments", a.handleRecordPayment)

			r.Post("/reviews", a.handleCreateReview)

			r.Post("/messages", a.handleSendMessage)
			r.Get("/messages/unread", a.handleUnreadCount)
			r.Get("/messages/conversations", a.handleConversations)
			r.Get("/messages/conversations/{partnerID}", a.handleConversation)
			r.Post("/messages/conversations/{partnerID}/read", a.handleMarkRead)

			r.Post("/news/{id}/like", a.handleLikeNews)
			r.Delete("/news/{id}/like", a.handleUnlikeNews)
			r.Post("/news/{id}/comments", a.handleAddNewsComment)
			r.Delete("/news/{id}/comments/{commentID}", a.handleDeleteNewsComment)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireActor, a.requireAdmin)

			r.Post("/guides/{id}/verify", a.handleVerifyGuide)
			r.Post("/guides/{id}/reject", a.handleRejectGuide)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/users", a.handleListUsers)
				r.Post("/users", a.handleCreateUser)
				r.Get("/users/{id}", a.handleGetUser)
				r.Patch("/users/{id}/ban", a.handleBanUser)
				r.Patch("/users/{id}/unban", a.handleUnbanUser)
				r.Delete("/users/{id}", a.handleRemoveUser)
				r.Get("/guides", a.handleAdminListGuides)
				r.Get("/audit", a.handleAudit)
				r.Get("/news", a.handleAdminListNews)
				r.Post("/news", a.handleCreateNews)
				r.Get("/news/{id}", a.handleAdminGetNews)
				r.Patch("/news/{id}", a.handleUpdateNews)
				r.Delete("/news/{id}", a.handleDeleteNews)
			})
		})
	})

	return r
}

// allowCredentials is false for a wildcard origin list, which go-chi/cors would
// otherwise answer by echoing any Origin.
func allowCredentials(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return false
		}
	}
	return len(origins) > 0
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		if err := a.ready(r.Context()); err != nil {
			a.log.Warn().Err(err).Msg("readiness check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "not ready"})
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
