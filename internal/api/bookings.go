package api

import (
	"net/http"

	"booking-service/internal/service"

	"github.com/gin-gonic/gin"
)

type createBookingRequest struct {
	TripID         string  `json:"tripId" binding:"required"`
	SeatNo         string  `json:"seatNo" binding:"required"`
	Price          *int64  `json:"price" binding:"omitempty,min=0"`
	IdempotencyKey string  `json:"idempotencyKey" binding:"omitempty,max=128"`
	PassengerName  *string `json:"passengerName" binding:"omitempty,max=200"`
	PassengerEmail *string `json:"passengerEmail" binding:"omitempty,email"`
	PassengerPhone *string `json:"passengerPhone" binding:"omitempty,max=32"`
}

type paymentRequest struct {
	CardNumber string `json:"cardNumber" binding:"required"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
}

type rescheduleRequest struct {
	NewTripID string `json:"newTripId" binding:"required"`
	NewSeatNo string `json:"newSeatNo" binding:"required"`
}

type passengerRequest struct {
	PassengerName  *string `json:"passengerName" binding:"omitempty,max=200"`
	PassengerEmail *string `json:"passengerEmail" binding:"omitempty,email"`
	PassengerPhone *string `json:"passengerPhone" binding:"omitempty,max=32"`
}

// createBooking returns 201 for a new booking and 200 for an idempotent replay
func (h *Handler) createBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if key := c.GetHeader("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	booking, created, err := h.bookings.CreateBooking(c.Request.Context(), callerFrom(c), service.CreateBookingInput{
		TripID:         req.TripID,
		SeatNo:         req.SeatNo,
		IdempotencyKey: req.IdempotencyKey,
		Price:          req.Price,
		PassengerName:  req.PassengerName,
		PassengerEmail: req.PassengerEmail,
		PassengerPhone: req.PassengerPhone,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, booking)
}

func (h *Handler) listMyBookings(c *gin.Context) {
	bookings, err := h.bookings.ListMyBookings(c.Request.Context(), callerFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *Handler) getBooking(c *gin.Context) {
	booking, err := h.bookings.GetBooking(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) cancelBooking(c *gin.Context) {
	booking, err := h.bookings.CancelBooking(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) confirmPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	booking, err := h.payments.ConfirmPayment(c.Request.Context(), callerFrom(c), c.Param("id"), service.PaymentInput{
		CardNumber: req.CardNumber,
		ExpiryDate: req.ExpiryDate,
		CVV:        req.CVV,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) rescheduleBooking(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	booking, err := h.bookings.RescheduleBooking(c.Request.Context(), callerFrom(c), c.Param("id"), service.RescheduleInput{
		NewTripID: req.NewTripID,
		NewSeatNo: req.NewSeatNo,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) updatePassenger(c *gin.Context) {
	var req passengerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	booking, err := h.bookings.UpdatePassenger(c.Request.Context(), callerFrom(c), c.Param("id"), service.PassengerPatch{
		Name:  req.PassengerName,
		Email: req.PassengerEmail,
		Phone: req.PassengerPhone,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}
