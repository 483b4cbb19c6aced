package domain

import (
	"time"

	"github.com/google/uuid"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
	SeatSold      SeatStatus = "sold"
	SeatHeld      SeatStatus = "held"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderFailed    OrderStatus = "failed"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

type TicketStatus string

const (
	TicketValid TicketStatus = "valid"
	TicketVoid  TicketStatus = "void"
)

type Show struct {
	ID                int64
	Title             string
	Venue             string
	StartsAt          time.Time
	DefaultPriceCents int
	CreatedAt         time.Time
}

type Seat struct {
	ID            int64
	ShowID        int64
	Section       string
	Row           string
	Number        int
	PriceCents    *int
	Status        SeatStatus
	ReservedUntil *time.Time
	ReservedBy    *uuid.UUID
}

// EffectiveStatus reports a reserved seat whose hold has lapsed as available.
// The stored status is only reset by the sweeper or by the next claim.
func (s Seat) EffectiveStatus(now time.Time) SeatStatus {
	if s.Status == SeatReserved && s.ReservedUntil != nil && !s.ReservedUntil.After(now) {
		return SeatAvailable
	}

	return s.Status
}

// Price returns the seat's own price or the show default when none is set.
func (s Seat) Price(defaultCents int) int {
	if s.PriceCents != nil {
		return *s.PriceCents
	}

	return defaultCents
}

type ShowCounts struct {
	Available int64
	Reserved  int64
	Sold      int64
	Held      int64
	Total     int64
}

type Reservation struct {
	ID        uuid.UUID
	Token     string
	ShowID    int64
	Email     string
	Phone     string
	ExpiresAt time.Time
	IsActive  bool
	CreatedAt time.Time
}

func (r Reservation) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

type ReservationView struct {
	Reservation
	Seats                []Seat
	IsExpired            bool
	TimeRemainingSeconds int64
	SeatCount            int
}

func NewReservationView(r Reservation, seats []Seat, now time.Time) *ReservationView {
	v := &ReservationView{
		Reservation: r,
		Seats:       seats,
		IsExpired:   r.Expired(now),
		SeatCount:   len(seats),
	}

	if remaining := r.ExpiresAt.Sub(now); remaining > 0 {
		v.TimeRemainingSeconds = int64(remaining / time.Second)
	}

	return v
}

type ReleaseResult struct {
	ReservationID uuid.UUID
	ShowID        int64
	ReleasedSeats int64
	AlreadyClosed bool
}

type Order struct {
	ID              uuid.UUID
	ShowID          int64
	ReservationID   *uuid.UUID
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	TotalCents      int
	Currency        string
	Status          OrderStatus
	PaymentIntentID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Ticket struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ShowID      int64
	SeatID      int64
	Code        string
	PriceCents  int
	Status      TicketStatus
	CheckedInAt *time.Time
	Created     time.Time
}

type OrderWithTickets struct {
	Order   Order
	Tickets []Ticket
	// ClientSecret is the payment provider secret handed to the buyer; never stored.
	ClientSecret string
}
