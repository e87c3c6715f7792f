package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"boxoffice/booking"
	"boxoffice/entity"
)

type reserveTicketsRequest struct {
	EventID string               `json:"event_id"`
	Tickets []entity.TierRequest `json:"tickets"`
}

type bookingResponse struct {
	BookingID     string                 `json:"booking_id"`
	EventID       string                 `json:"event_id"`
	Status        entity.BookingStatus   `json:"status"`
	Tickets       entity.ReservedTickets `json:"tickets"`
	TotalAmount   decimal.Decimal        `json:"total_amount"`
	ReservedUntil time.Time              `json:"reserved_until"`
	CreatedAt     time.Time              `json:"created_at"`
}

func newBookingResponse(b entity.Booking) bookingResponse {
	return bookingResponse{
		BookingID:     b.BookingID,
		EventID:       b.EventID,
		Status:        b.Status,
		Tickets:       b.Tickets,
		TotalAmount:   b.TotalAmount,
		ReservedUntil: b.ReservedUntil,
		CreatedAt:     b.CreatedAt,
	}
}

type reserveTicketsResponse struct {
	bookingResponse
	ExpiresInMinutes int `json:"expires_in_minutes"`
}

func (s Server) PostReserveTickets(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	var request reserveTicketsRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	result, err := s.orchestrator.ReserveTickets(c.Request().Context(), user, request.EventID, request.Tickets)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, reserveTicketsResponse{
		bookingResponse:  newBookingResponse(result),
		ExpiresInMinutes: int(booking.ReservationWindow.Minutes()),
	})
}

type confirmBookingRequest struct {
	BookingID     string          `json:"booking_id"`
	PaymentMethod json.RawMessage `json:"payment_method"`
}

type confirmBookingResponse struct {
	BookingID string               `json:"booking_id"`
	Status    entity.BookingStatus `json:"status"`
	Message   string               `json:"message"`
}

func (s Server) PostConfirmBooking(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	var request confirmBookingRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.BookingID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "booking_id is required")
	}

	result, err := s.lifecycle.Confirm(c.Request().Context(), request.BookingID, user, request.PaymentMethod)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, confirmBookingResponse{
		BookingID: result.BookingID,
		Status:    result.Status,
		Message:   "payment processing initiated",
	})
}

func (s Server) GetBooking(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	result, err := s.lifecycle.Get(c.Request().Context(), c.Param("booking_id"), user)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, newBookingResponse(result))
}

func (s Server) DeleteBooking(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	if err := s.lifecycle.Cancel(c.Request().Context(), c.Param("booking_id"), user); err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "booking cancelled"})
}

type listBookingsResponse struct {
	Bookings []bookingResponse `json:"bookings"`
	Count    int               `json:"count"`
}

func (s Server) GetUserBookings(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 100")
		}
	}

	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "offset must be non-negative")
		}
	}

	bookings, err := s.lifecycle.ListByUser(
		c.Request().Context(),
		user,
		limit,
		offset,
		entity.BookingStatus(c.QueryParam("status")),
	)
	if err != nil {
		return mapError(err)
	}

	response := lo.Map(bookings, func(b entity.Booking, _ int) bookingResponse {
		return newBookingResponse(b)
	})

	return c.JSON(http.StatusOK, listBookingsResponse{
		Bookings: response,
		Count:    len(response),
	})
}
