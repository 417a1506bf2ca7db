package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/frahmantamala/salon-portal/internal/admin"
	"github.com/frahmantamala/salon-portal/internal/auth"
	"github.com/frahmantamala/salon-portal/internal/booking"
	"github.com/frahmantamala/salon-portal/internal/payment"
	"github.com/frahmantamala/salon-portal/internal/transport/middleware"
	"github.com/frahmantamala/salon-portal/internal/transport/swagger"
)

// Handlers groups everything mounted under /api/v1. A nil handler leaves its routes out.
type Handlers struct {
	Health  *HealthHandler
	Auth    *auth.Handler
	Booking *booking.Handler
	Payment *payment.Handler
	Admin   *admin.Handler
	// Resolver decides who may enter /admin.
	Resolver middleware.UserResolver
}

type RouterOptions struct {
	AllowedOrigins []string
	// PaymentRateLimit caps payment submissions per client IP per minute. Zero disables it.
	PaymentRateLimit int
	OpenAPIPath      string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts RouterOptions, logger *slog.Logger) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	specPath := opts.OpenAPIPath
	if specPath == "" {
		specPath = "./api/openapi.yml"
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Trace-ID"},
		ExposedHeaders:   []string{"X-Trace-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.Token)

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, specPath)
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Auth != nil {
			r.Route("/auth", func(ar chi.Router) {
				ar.Post("/login", h.Auth.Login)
				ar.Post("/register", h.Auth.Register)

				ar.Group(func(pr chi.Router) {
					pr.Use(middleware.RequireToken)
					pr.Post("/logout", h.Auth.Logout)
					pr.Get("/me", h.Auth.Me)
					pr.Patch("/profile", h.Auth.UpdateProfile)
				})
			})
		}

		if h.Booking != nil {
			registerBookingRoutes(r, h.Booking)
		}

		if h.Payment != nil {
			registerPaymentRoutes(r, h.Payment, opts.PaymentRateLimit)
		}

		if h.Admin != nil && h.Resolver != nil {
			r.Route("/admin", func(ar chi.Router) {
				ar.Use(middleware.RequireToken)
				ar.Use(middleware.RequireAdmin(h.Resolver))
				registerAdminRoutes(ar, h.Admin)
			})
		}
	})
}

func registerBookingRoutes(r chi.Router, h *booking.Handler) {
	r.Get("/services", h.ListServices)
	r.Get("/services/featured", h.FeaturedServices)
	r.Get("/services/{id}", h.GetService)
	r.Get("/categories", h.ListCategories)
	r.Get("/gallery", h.ListGallery)
	r.Get("/reviews", h.ListReviews)
	r.Post("/contact", h.SendMessage)

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireToken)
		pr.Get("/appointments", h.ListAppointments)
		pr.Post("/appointments", h.BookAppointment)
		pr.Post("/reviews", h.SubmitReview)
		pr.Get("/notifications", h.ListNotifications)
		pr.Post("/notifications/read-all", h.MarkAllNotificationsRead)
		pr.Post("/notifications/{id}/read", h.MarkNotificationRead)
	})
}

func registerPaymentRoutes(r chi.Router, h *payment.Handler, perMinute int) {
	r.Route("/payments/sessions", func(pr chi.Router) {
		pr.Use(middleware.RequireToken)
		pr.Post("/", h.Open)

		pr.Route("/{sessionID}", func(sr chi.Router) {
			sr.Get("/", h.Get)
			sr.Delete("/", h.Close)
			sr.Get("/stream", h.Stream)
			sr.Post("/retry", h.Retry)
			sr.Post("/manual", h.Manual)
			sr.Post("/verify", h.Verify)

			sr.Group(func(lr chi.Router) {
				if perMinute > 0 {
					lr.Use(httprate.LimitByIP(perMinute, time.Minute))
				}
				lr.Post("/submit", h.Submit)
			})
		})
	})
}

func registerAdminRoutes(r chi.Router, h *admin.Handler) {
	r.Get("/dashboard", h.GetDashboard)
	r.Post("/dashboard/refresh", h.RefreshDashboard)

	r.Get("/appointments", h.ListAppointments)
	r.Patch("/appointments/{id}/status", h.UpdateAppointmentStatus)
	r.Delete("/appointments/{id}", h.DeleteAppointment)
	r.Post("/appointments/{id}/payment-review", h.ReviewPayment)

	r.Get("/transactions", h.ListTransactions)
	r.Patch("/transactions/{id}/status", h.UpdateTransactionStatus)

	r.Get("/services", h.ListServices)
	r.Post("/services", h.SaveService)
	r.Put("/services/{id}", h.SaveService)
	r.Delete("/services/{id}", h.DeleteService)

	r.Get("/categories", h.ListCategories)
	r.Post("/categories", h.SaveCategory)
	r.Put("/categories/{id}", h.SaveCategory)
	r.Delete("/categories/{id}", h.DeleteCategory)

	r.Get("/gallery", h.ListGallery)
	r.Post("/gallery", h.SaveGalleryItem)
	r.Put("/gallery/{id}", h.SaveGalleryItem)
	r.Delete("/gallery/{id}", h.DeleteGalleryItem)

	r.Get("/users", h.ListUsers)
	r.Post("/users/{id}/toggle-active", h.ToggleUserActive)
	r.Delete("/users/{id}", h.DeleteUser)

	r.Get("/reviews", h.ListReviews)
	r.Post("/reviews/{id}/toggle-approved", h.ToggleReviewApproved)
	r.Delete("/reviews/{id}", h.DeleteReview)

	r.Get("/contacts", h.ListContacts)
	r.Patch("/contacts/{id}/read", h.SetContactRead)
	r.Post("/contacts/{id}/reply", h.ReplyContact)
	r.Delete("/contacts/{id}", h.DeleteContact)
}
