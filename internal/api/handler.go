package api

import (
	"context"
	"net/http"
	"time"

	"booking-service/internal/auth"
	"booking-service/internal/models"
	"booking-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BookingService is the booking lifecycle as seen by the transport
type BookingService interface {
	CreateBooking(ctx context.Context, caller service.Caller, in service.CreateBookingInput) (*models.Booking, bool, error)
	CancelBooking(ctx context.Context, caller service.Caller, id string) (*models.Booking, error)
	RescheduleBooking(ctx context.Context, caller service.Caller, id string, in service.RescheduleInput) (*models.Booking, error)
	GetBooking(ctx context.Context, caller service.Caller, id string) (*models.BookingDetail, error)
	ListMyBookings(ctx context.Context, caller service.Caller) ([]models.BookingDetail, error)
	UpdatePassenger(ctx context.Context, caller service.Caller, id string, patch service.PassengerPatch) (*models.Booking, error)
}

type PaymentService interface {
	ConfirmPayment(ctx context.Context, caller service.Caller, id string, in service.PaymentInput) (*models.Booking, error)
}

type CatalogService interface {
	CreateProvider(ctx context.Context, caller service.Caller, in service.CreateProviderInput) (*models.Provider, error)
	ListProviders(ctx context.Context) ([]models.Provider, error)
	UpdateProviderStatus(ctx context.Context, caller service.Caller, id, status string) (*models.Provider, error)
	CreateRoute(ctx context.Context, caller service.Caller, in service.CreateRouteInput) (*models.Route, error)
	ListRoutes(ctx context.Context) ([]models.Route, error)
	CreateTrip(ctx context.Context, caller service.Caller, in service.CreateTripInput) (*models.Trip, error)
	GetTrip(ctx context.Context, id string) (*service.TripDetail, error)
	SearchTrips(ctx context.Context, in service.SearchInput) ([]models.TripListing, error)
}

type AvailabilityService interface {
	GetAvailability(ctx context.Context, tripID string) (*models.SeatCounts, error)
}

// TokenVerifier resolves a bearer token to a caller
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	bookings     BookingService
	payments     PaymentService
	catalog      CatalogService
	availability AvailabilityService
	verifier     TokenVerifier
	deps         map[string]Pinger
	logger       *zap.Logger
}

// Options groups the handler's collaborators
type Options struct {
	Bookings     BookingService
	Payments     PaymentService
	Catalog      CatalogService
	Availability AvailabilityService
	Verifier     TokenVerifier
	// Dependencies are pinged by /ready, keyed by name
	Dependencies map[string]Pinger
	Logger       *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		bookings:     opts.Bookings,
		payments:     opts.Payments,
		catalog:      opts.Catalog,
		availability: opts.Availability,
		verifier:     opts.Verifier,
		deps:         opts.Dependencies,
		logger:       logger,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/providers", h.listProviders)
		v1.GET("/routes", h.listRoutes)
		v1.GET("/trips", h.searchTrips)
		v1.GET("/trips/:id", h.getTrip)
		v1.GET("/trips/:id/availability", h.getAvailability)
		v1.GET("/search", h.searchTrips)
	}

	authed := v1.Group("")
	authed.Use(authMiddleware(h.verifier, h.logger))
	{
		authed.POST("/providers", h.createProvider)
		authed.PATCH("/providers/:id/status", h.updateProviderStatus)
		authed.POST("/routes", h.createRoute)
		authed.POST("/trips", h.createTrip)

		authed.POST("/bookings", h.createBooking)
		authed.GET("/bookings", h.listMyBookings)
		authed.GET("/bookings/:id", h.getBooking)
		authed.POST("/bookings/:id/cancel", h.cancelBooking)
		authed.POST("/bookings/:id/payment", h.confirmPayment)
		authed.POST("/bookings/:id/reschedule", h.rescheduleBooking)
		authed.PATCH("/bookings/:id/passenger", h.updatePassenger)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = "down"
			ready = false
			continue
		}
		checks[name] = "up"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
		"time":   time.Now().Unix(),
	})
}
