package entity

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Work-queue messages are opaque JSON tagged with an action field. Delivery
// is fire-and-forget; the booking core never observes the outcome of
// downstream processing.
const (
	ActionProcessReservation = "process_reservation"
	ActionProcessPayment     = "process_payment"
)

type ReservationMessage struct {
	Action    string `json:"action"`
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
}

func NewReservationMessage(bookingID, userID string) ReservationMessage {
	return ReservationMessage{
		Action:    ActionProcessReservation,
		BookingID: bookingID,
		UserID:    userID,
	}
}

func (m ReservationMessage) QueueAction() string { return m.Action }

type PaymentMessage struct {
	Action        string          `json:"action"`
	BookingID     string          `json:"booking_id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod json.RawMessage `json:"payment_method,omitempty"`
}

func (m PaymentMessage) QueueAction() string { return m.Action }

func NewPaymentMessage(booking Booking, paymentMethod json.RawMessage) PaymentMessage {
	return PaymentMessage{
		Action:        ActionProcessPayment,
		BookingID:     booking.BookingID,
		UserID:        booking.UserID,
		Amount:        booking.TotalAmount,
		PaymentMethod: paymentMethod,
	}
}
