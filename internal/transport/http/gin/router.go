package httpgin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/studioline/showtix/internal/domain"
	redisrepo "github.com/studioline/showtix/internal/repository/redis"
	"github.com/studioline/showtix/internal/service/admin"
	"github.com/studioline/showtix/internal/service/orders"
	"github.com/studioline/showtix/internal/service/reservation"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const maxWebhookBody = 64 << 10

type ReservationService interface {
	Reserve(ctx context.Context, in reservation.ReserveInput, rlKey string) (*domain.ReservationView, error)
	Release(ctx context.Context, ref reservation.Ref) (*domain.ReleaseResult, error)
	Check(ctx context.Context, ref reservation.Ref) (*domain.ReservationView, error)
	Expire(ctx context.Context) (int64, error)
}

type OrderService interface {
	CreateFromReservation(ctx context.Context, in orders.CreateInput) (*domain.OrderWithTickets, error)
	Get(ctx context.Context, orderID uuid.UUID) (*domain.OrderWithTickets, error)
	Refund(ctx context.Context, orderID uuid.UUID) (*domain.OrderWithTickets, error)
	ExpirePending(ctx context.Context) (int, error)
}

type QueryService interface {
	GetShow(ctx context.Context, id int64) (*domain.Show, error)
	CountsByStatus(ctx context.Context, showID int64) (*domain.ShowCounts, error)
	ListShowSeats(ctx context.Context, showID int64, onlyAvailable bool, limit, offset int) ([]domain.Seat, error)
	GetTicket(ctx context.Context, code string) (*domain.Ticket, error)
	WatchShow(ctx context.Context, showID int64, fn func(redisrepo.ShowChange)) error
}

type AdminService interface {
	CreateShow(ctx context.Context, in admin.ShowInput) (int64, error)
	AddSeats(ctx context.Context, showID int64, seats []domain.Seat) error
	SetSeatsHeld(ctx context.Context, showID int64, seatIDs []int64, held bool) error
	CheckInTicket(ctx context.Context, code string) (*domain.Ticket, error)
}

type WebhookService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type IdempotencyStore interface {
	AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	SaveResult(ctx context.Context, key string, payload []byte) error
	GetResult(ctx context.Context, key string) ([]byte, bool, error)
	Release(ctx context.Context, key string) error
}

// API groups what the handlers depend on. Idem may be nil, in which case
// Idempotency-Key headers are ignored. A nil Ready makes /readyz always ok.
type API struct {
	Reservations ReservationService
	Orders       OrderService
	Query        QueryService
	Admin        AdminService
	Webhooks     WebhookService
	Idem         IdempotencyStore
	Ready        func(ctx context.Context) error
}

func NewRouter(api API, logger *slog.Logger, middlewares ...gin.HandlerFunc) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", handleReady(api.Ready))

	shows := r.Group("/shows/:id")
	{
		shows.GET("", handleGetShow(api.Query))
		shows.GET("/availability", handleGetAvailability(api.Query))
		shows.GET("/seats", handleListShowSeats(api.Query))
		shows.GET("/events", handleShowEvents(api.Query, logger))
	}

	res := r.Group("/seat-reservations")
	{
		res.POST("/reserve", handleReserve(api.Reservations, api.Idem))
		res.POST("/release", handleRelease(api.Reservations))
		res.GET("/check", handleCheck(api.Reservations))
	}

	r.POST("/orders", handleCreateOrder(api.Orders))
	r.GET("/orders/:id", handleGetOrder(api.Orders))
	r.GET("/tickets/:code", handleGetTicket(api.Query))

	r.POST("/webhooks/stripe", handleStripeWebhook(api.Webhooks))

	// TODO: add admin middleware
	adm := r.Group("/admin")
	{
		adm.POST("/shows", handleCreateShow(api.Admin))
		adm.POST("/shows/:id/seats", handleAddSeats(api.Admin))
		adm.POST("/shows/:id/seats/hold", handleSetHeld(api.Admin, true))
		adm.POST("/shows/:id/seats/unhold", handleSetHeld(api.Admin, false))
		adm.POST("/orders/:id/refund", handleRefund(api.Orders))
		adm.POST("/tickets/:code/check-in", handleCheckIn(api.Admin))
		adm.POST("/reservations/sweep", handleSweep(api.Reservations, api.Orders))
	}

	return r
}

func handleReady(ready func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := ready(ctx); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

// @Summary  Get show
// @Tags     shows
// @Param    id  path  int  true  "Show ID"
// @Success  200  {object}  ShowResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /shows/{id} [get]
func handleGetShow(q QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		s, err := q.GetShow(c.Request.Context(), showID)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, toShowResponse(s), "public, max-age=60")
	}
}

// @Summary  Seat counts by status
// @Tags     shows
// @Param    id  path  int  true  "Show ID"
// @Success  200  {object}  CountsResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /shows/{id}/availability [get]
func handleGetAvailability(q QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		cnt, err := q.CountsByStatus(c.Request.Context(), showID)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, toCountsResponse(cnt), "public, max-age=5")
	}
}

// @Summary  List show seats
// @Tags     shows
// @Param    id      path   int     true   "Show ID"
// @Param    only    query  string  false  "available"
// @Param    limit   query  int     false  "page size"
// @Param    offset  query  int     false  "offset"
// @Success  200  {array}   SeatResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /shows/{id}/seats [get]
func handleListShowSeats(q QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		onlyAvailable := c.Query("only") == "available" || c.Query("only_available") == "true"
		limit := parseIntDefault(c.Query("limit"), 0)
		offset := parseIntDefault(c.Query("offset"), 0)

		seats, err := q.ListShowSeats(c.Request.Context(), showID, onlyAvailable, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, toSeatResponses(seats), "public, max-age=5")
	}
}

// @Summary  Reserve seats
// @Description  Holds the seats for a limited time. The same client repeating the same request with the same Idempotency-Key gets the first response back.
// @Tags     reservations
// @Param    Idempotency-Key  header  string  false  "client generated key"
// @Param    req  body  ReserveRequest  true  "payload"
// @Success  201  {object}  ReservationResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "seats unavailable or idempotency key in progress"
// @Failure  422  {object}  ErrorResponse  "idempotency key reused with a different body"
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Router   /seat-reservations/reserve [post]
func handleReserve(svc ReservationService, idem IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReserveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, bindErrorMessage(err))
			return
		}

		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var storageKey, fingerprint string
		if idem != nil && idemKey != "" {
			storageKey = redisrepo.KeyIdemReserve(req.ShowID, c.ClientIP(), idemKey)
			fingerprint = reserveFingerprint(req)

			if replayIdempotent(c, idem, storageKey, idemKey, fingerprint) {
				return
			}

			locked, err := idem.AcquireLock(ctx, storageKey, time.Minute)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if replayIdempotent(c, idem, storageKey, idemKey, fingerprint) {
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		view, err := svc.Reserve(ctx, reservation.ReserveInput{
			ShowID:  req.ShowID,
			SeatIDs: req.SeatIDs,
			Email:   req.Email,
			Phone:   req.Phone,
		}, "ip:"+c.ClientIP())
		if err != nil {
			if storageKey != "" {
				_ = idem.Release(ctx, storageKey)
			}
			respondErr(c, err)
			return
		}

		resp := toReservationResponse(view, true)

		if storageKey != "" {
			if body, err := json.Marshal(resp); err == nil {
				if b, err := json.Marshal(idemRecord{Fingerprint: fingerprint, Response: body}); err == nil {
					_ = idem.SaveResult(ctx, storageKey, b)
				}
			}
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// idemRecord is what a finished reserve request leaves behind under its
// idempotency key.
type idemRecord struct {
	Fingerprint string          `json:"fingerprint"`
	Response    json.RawMessage `json:"response"`
}

func reserveFingerprint(req ReserveRequest) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// replayIdempotent answers the request from a stored result and reports
// whether it did. A stored result for a different body is never replayed.
func replayIdempotent(c *gin.Context, idem IdempotencyStore, storageKey, idemKey, fingerprint string) bool {
	payload, ok, _ := idem.GetResult(c.Request.Context(), storageKey)
	if !ok {
		return false
	}

	var rec idemRecord
	if err := json.Unmarshal(payload, &rec); err != nil || rec.Fingerprint != fingerprint {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "idempotency key was already used for a different request"})
		return true
	}

	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", rec.Response)

	return true
}

// @Summary  Release a reservation
// @Description  Idempotent. Releasing an already closed reservation succeeds with already_released set.
// @Tags     reservations
// @Param    req  body  ReleaseRequest  true  "token or reservation_id"
// @Success  200  {object}  ReleaseResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /seat-reservations/release [post]
func handleRelease(svc ReservationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReleaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, bindErrorMessage(err))
			return
		}

		ref, ok := parseRef(c, req.Token, req.ReservationID)
		if !ok {
			return
		}

		out, err := svc.Release(c.Request.Context(), ref)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, ReleaseResponse{
			ReservationID:   out.ReservationID.String(),
			ReleasedSeats:   out.ReleasedSeats,
			AlreadyReleased: out.AlreadyClosed,
		})
	}
}

// @Summary  Check a reservation
// @Description  Email and phone are only returned when the reservation is looked up by token.
// @Tags     reservations
// @Param    token           query  string  false  "reservation token"
// @Param    reservation_id  query  string  false  "reservation id"
// @Success  200  {object}  ReservationResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /seat-reservations/check [get]
func handleCheck(svc ReservationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := parseRef(c, c.Query("token"), c.Query("reservation_id"))
		if !ok {
			return
		}

		view, err := svc.Check(c.Request.Context(), ref)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := toReservationResponse(view, false)
		if ref.Token == "" {
			// contact details are for the token holder only
			resp.Email, resp.Phone = "", ""
		}

		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, resp)
	}
}

// @Summary  Create an order from a reservation
// @Description  Converts an active reservation into an order with one ticket per seat. With payments enabled the response carries the PaymentIntent client secret.
// @Tags     orders
// @Param    req  body  CreateOrderRequest  true  "payload"
// @Success  201  {object}  OrderResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  403  {object}  ErrorResponse  "email does not match the reservation"
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Failure  410  {object}  ErrorResponse  "reservation expired or closed"
// @Failure  502  {object}  ErrorResponse
// @Router   /orders [post]
func handleCreateOrder(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, bindErrorMessage(err))
			return
		}

		o, err := svc.CreateFromReservation(c.Request.Context(), orders.CreateInput{
			Token:        req.Token,
			CustomerName: req.CustomerName,
			Email:        req.Email,
			Phone:        req.Phone,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, toOrderResponse(o))
	}
}

// @Summary  Get order with tickets
// @Tags     orders
// @Param    id  path  string  true  "Order ID (uuid)"
// @Success  200  {object}  OrderResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /orders/{id} [get]
func handleGetOrder(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		o, err := svc.Get(c.Request.Context(), orderID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toOrderResponse(o))
	}
}

// @Summary  Look up a ticket
// @Tags     tickets
// @Param    code  path  string  true  "ticket code"
// @Success  200  {object}  TicketResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /tickets/{code} [get]
func handleGetTicket(q QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := q.GetTicket(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toTicketResponse(*t))
	}
}

// @Summary  Stripe webhook
// @Tags     payments
// @Param    Stripe-Signature  header  string  true  "signature"
// @Success  200
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse  "payments disabled"
// @Router   /webhooks/stripe [post]
func handleStripeWebhook(svc WebhookService) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "payload too large"})
			return
		}

		if err := svc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

// @Summary  Create show with seats
// @Tags     admin
// @Param    req  body  CreateShowRequest  true  "payload"
// @Success  201  {object}  CreateShowResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/shows [post]
func handleCreateShow(svc AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateShowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, bindErrorMessage(err))
			return
		}

		id, err := svc.CreateShow(c.Request.Context(), admin.ShowInput{
			Title:             req.Title,
			Venue:             req.Venue,
			StartsAt:          req.StartsAt,
			DefaultPriceCents: req.DefaultPriceCents,
			Seats:             toDomainSeats(0, req.Seats),
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CreateShowResponse{ShowID: id})
	}
}

// @Summary  Add seats to a show
// @Tags     admin
// @Param    id   path  int              true  "Show ID"
// @Param    req  body  AddSeatsRequest  true  "payload"
// @Success  201  {object}  map[string]int
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/shows/{id}/seats [post]
func handleAddSeats(svc AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req AddSeatsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, bindErrorMessage(err))
			return
		}

		if err := svc.AddSeats(c.Request.Context(), showID, toDomainSeats(showID, req.Seats)); err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"created": len(req.Seats)})
	}
}

// @Summary  Hold or unhold house seats
// @Tags     admin
// @Param    id   path  int             true  "Show ID"
// @Param    req  body  SeatIDsRequest  true  "payload"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/shows/{id}/seats/hold [post]
// @Router   /admin/shows/{id}/seats/unhold [post]
func handleSetHeld(svc AdminService, held bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req SeatIDsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, bindErrorMessage(err))
			return
		}

		if err := svc.SetSeatsHeld(c.Request.Context(), showID, req.SeatIDs, held); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  Refund an order
// @Tags     admin
// @Param    id  path  string  true  "Order ID (uuid)"
// @Success  200  {object}  OrderResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Failure  502  {object}  ErrorResponse
// @Router   /admin/orders/{id}/refund [post]
func handleRefund(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		o, err := svc.Refund(c.Request.Context(), orderID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toOrderResponse(o))
	}
}

// @Summary  Check in a ticket at the door
// @Tags     admin
// @Param    code  path  string  true  "ticket code"
// @Success  200  {object}  TicketResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/tickets/{code}/check-in [post]
func handleCheckIn(svc AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := svc.CheckInTicket(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toTicketResponse(*t))
	}
}

// @Summary  Release expired reservations now
// @Description  Also cancels orders left unpaid past the pending TTL.
// @Tags     admin
// @Success  200  {object}  SweepResponse
// @Router   /admin/reservations/sweep [post]
func handleSweep(res ReservationService, ord OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		n, err := res.Expire(ctx)
		if err != nil {
			respondErr(c, err)
			return
		}

		cancelled, err := ord.ExpirePending(ctx)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, SweepResponse{ReleasedSeats: n, CancelledOrders: cancelled})
	}
}

func parseRef(c *gin.Context, token, id string) (reservation.Ref, bool) {
	ref := reservation.Ref{Token: strings.TrimSpace(token)}

	if id = strings.TrimSpace(id); id != "" {
		u, err := uuid.Parse(id)
		if err != nil {
			badRequest(c, "invalid reservation_id")
			return ref, false
		}
		ref.ID = u
	}

	return ref, true
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}

	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}

	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}

	return v
}
