package api

import (
	"net/http"
	"time"

	"booking-service/internal/service"

	"github.com/gin-gonic/gin"
)

type createProviderRequest struct {
	Name string `json:"name" binding:"required"`
}

type providerStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type createRouteRequest struct {
	ProviderID  string `json:"providerId" binding:"required"`
	Source      string `json:"source" binding:"required"`
	Destination string `json:"destination" binding:"required"`
}

type createTripRequest struct {
	RouteID   string    `json:"routeId" binding:"required"`
	Departure time.Time `json:"departure" binding:"required"`
	Capacity  int       `json:"capacity" binding:"required,min=1"`
	BasePrice int64     `json:"basePrice" binding:"required,min=1"`
}

func (h *Handler) createProvider(c *gin.Context) {
	var req createProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	provider, err := h.catalog.CreateProvider(c.Request.Context(), callerFrom(c), service.CreateProviderInput{Name: req.Name})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, provider)
}

func (h *Handler) listProviders(c *gin.Context) {
	providers, err := h.catalog.ListProviders(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, providers)
}

func (h *Handler) updateProviderStatus(c *gin.Context) {
	var req providerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	provider, err := h.catalog.UpdateProviderStatus(c.Request.Context(), callerFrom(c), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, provider)
}

func (h *Handler) createRoute(c *gin.Context) {
	var req createRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	route, err := h.catalog.CreateRoute(c.Request.Context(), callerFrom(c), service.CreateRouteInput{
		ProviderID:  req.ProviderID,
		Source:      req.Source,
		Destination: req.Destination,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, route)
}

func (h *Handler) listRoutes(c *gin.Context) {
	routes, err := h.catalog.ListRoutes(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, routes)
}

func (h *Handler) createTrip(c *gin.Context) {
	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	trip, err := h.catalog.CreateTrip(c.Request.Context(), callerFrom(c), service.CreateTripInput{
		RouteID:   req.RouteID,
		Departure: req.Departure,
		Capacity:  req.Capacity,
		BasePrice: req.BasePrice,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trip)
}

func (h *Handler) getTrip(c *gin.Context) {
	trip, err := h.catalog.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// searchTrips serves both GET /trips and GET /search?from=&to=&date=
func (h *Handler) searchTrips(c *gin.Context) {
	trips, err := h.catalog.SearchTrips(c.Request.Context(), service.SearchInput{
		From: c.Query("from"),
		To:   c.Query("to"),
		Date: c.Query("date"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trips)
}

func (h *Handler) getAvailability(c *gin.Context) {
	counts, err := h.availability.GetAvailability(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}
