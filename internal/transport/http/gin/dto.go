package httpgin

import (
	"time"

	"github.com/studioline/showtix/internal/domain"
)

type ErrorResponse struct {
	Error   string  `json:"error"`
	SeatIDs []int64 `json:"seat_ids,omitempty"`
}

type ReserveRequest struct {
	ShowID  int64   `json:"show_id" binding:"required,gt=0"`
	SeatIDs []int64 `json:"seat_ids" binding:"required"`
	Email   string  `json:"email" binding:"omitempty,email,max=254"`
	Phone   string  `json:"phone" binding:"omitempty,max=32"`
}

type ReleaseRequest struct {
	Token         string `json:"token" binding:"omitempty,max=128"`
	ReservationID string `json:"reservation_id" binding:"omitempty,uuid"`
}

// CreateOrderRequest carries no payment fields: the payment intent is always
// created by the server so its metadata links back to the order.
type CreateOrderRequest struct {
	Token        string `json:"token" binding:"required,max=128"`
	CustomerName string `json:"customer_name" binding:"required,max=200"`
	Email        string `json:"email" binding:"required,email,max=254"`
	Phone        string `json:"phone" binding:"omitempty,max=32"`
}

type SeatInput struct {
	Section    string `json:"section" binding:"required,max=64"`
	Row        string `json:"row" binding:"required,max=16"`
	Number     int    `json:"number" binding:"required,gt=0"`
	PriceCents *int   `json:"price_cents" binding:"omitempty,gte=0"`
}

type CreateShowRequest struct {
	Title             string      `json:"title" binding:"required,max=200"`
	Venue             string      `json:"venue" binding:"max=200"`
	StartsAt          time.Time   `json:"starts_at" binding:"required"`
	DefaultPriceCents int         `json:"default_price_cents" binding:"gte=0"`
	Seats             []SeatInput `json:"seats" binding:"dive"`
}

type AddSeatsRequest struct {
	Seats []SeatInput `json:"seats" binding:"required,min=1,dive"`
}

type SeatIDsRequest struct {
	SeatIDs []int64 `json:"seat_ids" binding:"required,min=1,dive,gt=0"`
}

type ShowResponse struct {
	ID                int64     `json:"id"`
	Title             string    `json:"title"`
	Venue             string    `json:"venue"`
	StartsAt          time.Time `json:"starts_at"`
	DefaultPriceCents int       `json:"default_price_cents"`
}

type CountsResponse struct {
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
	Sold      int64 `json:"sold"`
	Held      int64 `json:"held"`
	Total     int64 `json:"total"`
}

type SeatResponse struct {
	ID            int64      `json:"id"`
	ShowID        int64      `json:"show_id"`
	Section       string     `json:"section"`
	Row           string     `json:"row"`
	Number        int        `json:"number"`
	PriceCents    *int       `json:"price_cents,omitempty"`
	Status        string     `json:"status"`
	ReservedUntil *time.Time `json:"reserved_until,omitempty"`
}

type ReservationResponse struct {
	ReservationID        string         `json:"reservation_id"`
	Token                string         `json:"token,omitempty"`
	ShowID               int64          `json:"show_id"`
	Email                string         `json:"email,omitempty"`
	Phone                string         `json:"phone,omitempty"`
	ExpiresAt            time.Time      `json:"expires_at"`
	IsActive             bool           `json:"is_active"`
	IsExpired            bool           `json:"is_expired"`
	TimeRemainingSeconds int64          `json:"time_remaining_seconds"`
	SeatCount            int            `json:"seat_count"`
	Seats                []SeatResponse `json:"seats"`
}

type ReleaseResponse struct {
	ReservationID   string `json:"reservation_id"`
	ReleasedSeats   int64  `json:"released_seats"`
	AlreadyReleased bool   `json:"already_released"`
}

type TicketResponse struct {
	Code        string     `json:"code"`
	OrderID     string     `json:"order_id"`
	ShowID      int64      `json:"show_id"`
	SeatID      int64      `json:"seat_id"`
	PriceCents  int        `json:"price_cents"`
	Status      string     `json:"status"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

type OrderResponse struct {
	OrderID         string           `json:"order_id"`
	ShowID          int64            `json:"show_id"`
	ReservationID   *string          `json:"reservation_id,omitempty"`
	CustomerName    string           `json:"customer_name"`
	CustomerEmail   string           `json:"customer_email"`
	CustomerPhone   string           `json:"customer_phone,omitempty"`
	TotalCents      int              `json:"total_cents"`
	Currency        string           `json:"currency"`
	Status          string           `json:"status"`
	PaymentIntentID *string          `json:"payment_intent_id,omitempty"`
	ClientSecret    string           `json:"client_secret,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	Tickets         []TicketResponse `json:"tickets"`
}

type CreateShowResponse struct {
	ShowID int64 `json:"show_id"`
}

type SweepResponse struct {
	ReleasedSeats   int64 `json:"released_seats"`
	CancelledOrders int   `json:"cancelled_orders"`
}

func toShowResponse(s *domain.Show) ShowResponse {
	return ShowResponse{
		ID:                s.ID,
		Title:             s.Title,
		Venue:             s.Venue,
		StartsAt:          s.StartsAt,
		DefaultPriceCents: s.DefaultPriceCents,
	}
}

func toCountsResponse(c *domain.ShowCounts) CountsResponse {
	return CountsResponse{
		Available: c.Available,
		Reserved:  c.Reserved,
		Sold:      c.Sold,
		Held:      c.Held,
		Total:     c.Total,
	}
}

func toSeatResponses(seats []domain.Seat) []SeatResponse {
	out := make([]SeatResponse, 0, len(seats))
	for _, s := range seats {
		out = append(out, SeatResponse{
			ID:            s.ID,
			ShowID:        s.ShowID,
			Section:       s.Section,
			Row:           s.Row,
			Number:        s.Number,
			PriceCents:    s.PriceCents,
			Status:        string(s.Status),
			ReservedUntil: s.ReservedUntil,
		})
	}

	return out
}

func toReservationResponse(v *domain.ReservationView, withToken bool) ReservationResponse {
	out := ReservationResponse{
		ReservationID:        v.ID.String(),
		ShowID:               v.ShowID,
		Email:                v.Email,
		Phone:                v.Phone,
		ExpiresAt:            v.ExpiresAt,
		IsActive:             v.IsActive,
		IsExpired:            v.IsExpired,
		TimeRemainingSeconds: v.TimeRemainingSeconds,
		SeatCount:            v.SeatCount,
		Seats:                toSeatResponses(v.Seats),
	}

	if withToken {
		out.Token = v.Token
	}

	return out
}

func toTicketResponse(t domain.Ticket) TicketResponse {
	return TicketResponse{
		Code:        t.Code,
		OrderID:     t.OrderID.String(),
		ShowID:      t.ShowID,
		SeatID:      t.SeatID,
		PriceCents:  t.PriceCents,
		Status:      string(t.Status),
		CheckedInAt: t.CheckedInAt,
	}
}

func toOrderResponse(o *domain.OrderWithTickets) OrderResponse {
	out := OrderResponse{
		OrderID:         o.Order.ID.String(),
		ShowID:          o.Order.ShowID,
		CustomerName:    o.Order.CustomerName,
		CustomerEmail:   o.Order.CustomerEmail,
		CustomerPhone:   o.Order.CustomerPhone,
		TotalCents:      o.Order.TotalCents,
		Currency:        o.Order.Currency,
		Status:          string(o.Order.Status),
		PaymentIntentID: o.Order.PaymentIntentID,
		ClientSecret:    o.ClientSecret,
		CreatedAt:       o.Order.CreatedAt,
		Tickets:         make([]TicketResponse, 0, len(o.Tickets)),
	}

	if o.Order.ReservationID != nil {
		id := o.Order.ReservationID.String()
		out.ReservationID = &id
	}

	for _, t := range o.Tickets {
		out.Tickets = append(out.Tickets, toTicketResponse(t))
	}

	return out
}

func toDomainSeats(showID int64, in []SeatInput) []domain.Seat {
	out := make([]domain.Seat, 0, len(in))
	for _, s := range in {
		out = append(out, domain.Seat{
			ShowID:     showID,
			Section:    s.Section,
			Row:        s.Row,
			Number:     s.Number,
			PriceCents: s.PriceCents,
			Status:     domain.SeatAvailable,
		})
	}

	return out
}
