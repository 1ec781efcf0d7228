package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/merobus/merobus-backend/internal/booking"
	"github.com/merobus/merobus-backend/internal/middleware"
	"github.com/merobus/merobus-backend/internal/payment"
	"github.com/merobus/merobus-backend/internal/repository"
)

// PaymentHandler serves payment initiation and the provider callback.
// With no provider configured both endpoints answer 503.
type PaymentHandler struct {
	Coordinator *booking.Coordinator
	Khalti      *payment.KhaltiClient
	ReturnURL   string
}

func NewPaymentHandler(co *booking.Coordinator, k *payment.KhaltiClient, returnURL string) *PaymentHandler {
	return &PaymentHandler{Coordinator: co, Khalti: k, ReturnURL: returnURL}
}

type initiatePaymentReq struct {
	BookingID uint64 `json:"booking_id"`
}

// Initiate creates a payment expectation for a booking and registers
// it with Khalti, returning the URL the rider completes payment at.
func (h *PaymentHandler) Initiate(c echo.Context) error {
	if h.Khalti == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payments not configured"})
	}
	var req initiatePaymentReq
	if err := c.Bind(&req); err != nil || req.BookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	p, err := h.Coordinator.InitiatePayment(ctx, req.BookingID, middleware.UserID(c), "Khalti")
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, booking.ErrNotOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, booking.ErrAlreadyConfirmed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is already confirmed"})
	case errors.Is(err, booking.ErrCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is cancelled"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "initiate payment failed"})
	}

	orderName := "Bus seats booking #" + p.OrderID
	pidx, payURL, err := h.Khalti.Initiate(ctx, p.OrderID, orderName, h.ReturnURL, p.AmountPaisa)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"order_id":     p.OrderID,
		"pidx":         pidx,
		"payment_url":  payURL,
		"amount_paisa": p.AmountPaisa,
	})
}

// Callback handles the provider redirect after payment. The pidx is
// verified against Khalti server-side; the client-supplied status is
// never trusted. Repeated callbacks for a completed payment are
// harmless.
func (h *PaymentHandler) Callback(c echo.Context) error {
	if h.Khalti == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payments not configured"})
	}
	orderID := c.QueryParam("purchase_order_id")
	pidx := c.QueryParam("pidx")
	if orderID == "" || pidx == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "purchase_order_id and pidx required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	p, err := h.Coordinator.ConfirmPayment(ctx, orderID, pidx)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{
			"message":        "payment completed",
			"order_id":       p.OrderID,
			"booking_id":     p.BookingID,
			"transaction_id": p.TransactionID,
			"status":         p.Status,
		})
	case errors.Is(err, repository.ErrPaymentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
	case errors.Is(err, booking.ErrVerificationFailed):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment verification failed"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirm payment failed"})
	}
}
