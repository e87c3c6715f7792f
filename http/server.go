package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"boxoffice/entity"
)

type ReservationOrchestrator interface {
	ReserveTickets(ctx context.Context, userID, eventID string, requests []entity.TierRequest) (entity.Booking, error)
}

type BookingLifecycle interface {
	Confirm(ctx context.Context, bookingID, userID string, paymentMethod json.RawMessage) (entity.Booking, error)
	Cancel(ctx context.Context, bookingID, userID string) error
	Get(ctx context.Context, bookingID, userID string) (entity.Booking, error)
	ListByUser(ctx context.Context, userID string, limit, offset int, status entity.BookingStatus) ([]entity.Booking, error)
}

type Server struct {
	addr         string
	e            *echo.Echo
	orchestrator ReservationOrchestrator
	lifecycle    BookingLifecycle
}

func NewServer(
	addr string,
	orchestrator ReservationOrchestrator,
	lifecycle BookingLifecycle,
) *Server {
	e := echoHTTP.NewEcho()

	server := &Server{
		addr:         addr,
		e:            e,
		orchestrator: orchestrator,
		lifecycle:    lifecycle,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/booking/reserve", server.PostReserveTickets)
	e.POST("/booking/confirm", server.PostConfirmBooking)
	e.GET("/booking/:booking_id", server.GetBooking)
	e.DELETE("/booking/:booking_id", server.DeleteBooking)
	e.GET("/user/bookings", server.GetUserBookings)

	return server
}

func (s Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(ctx)
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// userID returns the identity resolved by the upstream auth layer.
func userID(c echo.Context) (string, error) {
	id := c.Request().Header.Get("X-User-ID")
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "user identity is missing")
	}
	return id, nil
}

// mapError translates the core's error taxonomy to transport semantics.
// Distinct classes must never collapse into one generic failure.
func mapError(err error) error {
	var status int
	switch {
	case errors.Is(err, entity.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, entity.ErrQuotaExceeded),
		errors.Is(err, entity.ErrEventNotAvailable),
		errors.Is(err, entity.ErrNoAvailableTickets),
		errors.Is(err, entity.ErrReservationExpired),
		errors.Is(err, entity.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, entity.ErrLockNotAcquired):
		status = http.StatusServiceUnavailable
	default:
		return err
	}

	return echo.NewHTTPError(status, err.Error())
}
