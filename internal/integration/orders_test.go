package integration_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	"github.com/studioline/showtix/internal/domain"
	httpgin "github.com/studioline/showtix/internal/transport/http/gin"
	"github.com/stripe/stripe-go/v82/webhook"
)

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func (s *IntegrationSuite) TestBoxOfficeOrderLifecycle() {
	showID, seats := s.seedShow(3, 2500)
	res := s.reserve(s.boxOfficeRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats[:2], Email: "Parent@Example.com"})

	rec := s.call(s.boxOfficeRouter, http.MethodPost, "/orders", httpgin.CreateOrderRequest{
		Token:        res.Token,
		CustomerName: "Dana Parent",
		Email:        "parent@example.com",
	}, nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	order := decode[httpgin.OrderResponse](s, rec)
	s.Equal("paid", order.Status)
	s.Equal(5000, order.TotalCents)
	s.Empty(order.ClientSecret)
	s.Require().Len(order.Tickets, 2)
	for _, id := range seats[:2] {
		s.Equal(domain.SeatSold, s.seatStatus(id))
	}

	// the reservation is spent
	rec = s.call(s.boxOfficeRouter, http.MethodPost, "/orders", httpgin.CreateOrderRequest{
		Token:        res.Token,
		CustomerName: "Dana Parent",
		Email:        "parent@example.com",
	}, nil)
	s.Equal(http.StatusGone, rec.Code)

	rec = s.call(s.boxOfficeRouter, http.MethodGet, "/orders/"+order.OrderID, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Len(decode[httpgin.OrderResponse](s, rec).Tickets, 2)

	code := order.Tickets[0].Code
	rec = s.call(s.boxOfficeRouter, http.MethodGet, "/tickets/"+code, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("valid", decode[httpgin.TicketResponse](s, rec).Status)

	rec = s.call(s.boxOfficeRouter, http.MethodPost, "/admin/tickets/"+code+"/check-in", nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.NotNil(decode[httpgin.TicketResponse](s, rec).CheckedInAt)

	rec = s.call(s.boxOfficeRouter, http.MethodPost, "/admin/tickets/"+code+"/check-in", nil, nil)
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.call(s.boxOfficeRouter, http.MethodPost, "/admin/orders/"+order.OrderID+"/refund", nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	refunded := decode[httpgin.OrderResponse](s, rec)
	s.Equal("refunded", refunded.Status)
	for _, t := range refunded.Tickets {
		s.Equal("void", t.Status)
	}
	for _, id := range seats[:2] {
		s.Equal(domain.SeatAvailable, s.seatStatus(id))
	}

	rec = s.call(s.boxOfficeRouter, http.MethodPost, "/admin/orders/"+order.OrderID+"/refund", nil, nil)
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *IntegrationSuite) TestOrderEmailMismatch() {
	showID, seats := s.seedShow(1, 1000)
	res := s.reserve(s.boxOfficeRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats, Email: "owner@example.com"})

	rec := s.call(s.boxOfficeRouter, http.MethodPost, "/orders", httpgin.CreateOrderRequest{
		Token:        res.Token,
		CustomerName: "Someone Else",
		Email:        "other@example.com",
	}, nil)

	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal(domain.SeatReserved, s.seatStatus(seats[0]))
}

func (s *IntegrationSuite) TestOrderFromExpiredReservation() {
	showID, seats := s.seedShow(1, 1000)
	res := s.reserve(s.boxOfficeRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats})
	s.lapse(res.ReservationID)

	rec := s.call(s.boxOfficeRouter, http.MethodPost, "/orders", httpgin.CreateOrderRequest{
		Token:        res.Token,
		CustomerName: "Late Parent",
		Email:        "late@example.com",
	}, nil)

	s.Equal(http.StatusGone, rec.Code)
}

func (s *IntegrationSuite) TestOnlineOrderPaidByWebhook() {
	showID, seats := s.seedShow(2, 4000)
	res := s.reserve(s.onlineRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats[:1]})

	order := s.onlineOrder(res.Token)
	s.Equal("pending", order.Status)
	s.Equal("pi_"+order.OrderID+"_secret", order.ClientSecret)
	s.Equal(domain.SeatSold, s.seatStatus(seats[0]))

	eventID := "evt_paid_" + order.OrderID
	s.Equal(http.StatusOK, s.deliver(eventID, "payment_intent.succeeded", order.OrderID).Code)

	rec := s.call(s.onlineRouter, http.MethodGet, "/orders/"+order.OrderID, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("paid", decode[httpgin.OrderResponse](s, rec).Status)

	// redelivery is acknowledged and changes nothing
	s.Equal(http.StatusOK, s.deliver(eventID, "payment_intent.succeeded", order.OrderID).Code)
}

func (s *IntegrationSuite) TestOnlineOrderFailedPaymentReleasesSeats() {
	showID, seats := s.seedShow(2, 4000)
	res := s.reserve(s.onlineRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats})
	order := s.onlineOrder(res.Token)

	s.Equal(http.StatusOK, s.deliver("evt_failed_"+order.OrderID, "payment_intent.payment_failed", order.OrderID).Code)

	rec := s.call(s.onlineRouter, http.MethodGet, "/orders/"+order.OrderID, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	got := decode[httpgin.OrderResponse](s, rec)
	s.Equal("failed", got.Status)
	for _, t := range got.Tickets {
		s.Equal("void", t.Status)
	}
	for _, id := range seats {
		s.Equal(domain.SeatAvailable, s.seatStatus(id))
	}
}

func (s *IntegrationSuite) TestPaymentProviderFailureCompensates() {
	showID, seats := s.seedShow(1, 4000)
	res := s.reserve(s.onlineRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats})

	s.provider.setFail(true)

	rec := s.call(s.onlineRouter, http.MethodPost, "/orders", httpgin.CreateOrderRequest{
		Token:        res.Token,
		CustomerName: "Dana Parent",
		Email:        "parent@example.com",
	}, nil)

	s.Equal(http.StatusBadGateway, rec.Code)
	s.Equal(domain.SeatAvailable, s.seatStatus(seats[0]))
}

func (s *IntegrationSuite) TestWebhookRejectsBadSignature() {
	rec := s.call(s.onlineRouter, http.MethodPost, "/webhooks/stripe", []byte(`{"id":"evt_x"}`),
		map[string]string{"Stripe-Signature": "t=1,v1=deadbeef"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.call(s.boxOfficeRouter, http.MethodPost, "/webhooks/stripe", []byte(`{}`), nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *IntegrationSuite) TestCheckInRules() {
	showID, seats := s.seedShow(2, 1500)
	res := s.reserve(s.boxOfficeRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats})

	rec := s.call(s.boxOfficeRouter, http.MethodPost, "/orders", httpgin.CreateOrderRequest{
		Token:        res.Token,
		CustomerName: "Dana Parent",
		Email:        "parent@example.com",
	}, nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[httpgin.OrderResponse](s, rec)
	s.Require().Len(order.Tickets, 2)

	checkIn := func(code string) int {
		return s.call(s.boxOfficeRouter, http.MethodPost, "/admin/tickets/"+code+"/check-in", nil, nil).Code
	}

	s.Equal(http.StatusOK, checkIn(order.Tickets[0].Code))
	s.Equal(http.StatusConflict, checkIn(order.Tickets[0].Code), "a ticket is admitted once")
	s.Equal(http.StatusNotFound, checkIn("NOPE0-NOPE0"))

	rec = s.call(s.boxOfficeRouter, http.MethodPost, "/admin/orders/"+order.OrderID+"/refund", nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	s.Equal(http.StatusConflict, checkIn(order.Tickets[1].Code), "void tickets are not admitted")
}

func (s *IntegrationSuite) TestClientCannotChooseThePaymentIntent() {
	showID, seats := s.seedShow(1, 4000)
	res := s.reserve(s.onlineRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats})

	rec := s.call(s.onlineRouter, http.MethodPost, "/orders", map[string]string{
		"token":             res.Token,
		"customer_name":     "Dana Parent",
		"email":             "parent@example.com",
		"payment_intent_id": "pi_someone_elses",
	}, nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	order := decode[httpgin.OrderResponse](s, rec)
	s.Require().NotNil(order.PaymentIntentID)
	s.Equal("pi_"+order.OrderID, *order.PaymentIntentID)
	s.NotEmpty(order.ClientSecret)
}

func (s *IntegrationSuite) TestAbandonedOrderIsCancelled() {
	showID, seats := s.seedShow(1, 4000)
	res := s.reserve(s.onlineRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats})
	order := s.onlineOrder(res.Token)
	s.Equal(domain.SeatSold, s.seatStatus(seats[0]))

	// a fresh pending order is left alone
	rec := s.call(s.onlineRouter, http.MethodPost, "/admin/reservations/sweep", nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(domain.SeatSold, s.seatStatus(seats[0]))

	s.abandon(order.OrderID)

	rec = s.call(s.onlineRouter, http.MethodPost, "/admin/reservations/sweep", nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.GreaterOrEqual(decode[httpgin.SweepResponse](s, rec).CancelledOrders, 1)

	rec = s.call(s.onlineRouter, http.MethodGet, "/orders/"+order.OrderID, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	got := decode[httpgin.OrderResponse](s, rec)
	s.Equal("cancelled", got.Status)
	for _, t := range got.Tickets {
		s.Equal("void", t.Status)
	}

	s.True(s.provider.cancelled("pi_" + order.OrderID))
	s.Equal(domain.SeatAvailable, s.seatStatus(seats[0]))
	s.reserve(s.onlineRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats})
}

func (s *IntegrationSuite) TestAbandonedOrderWithSettledIntentIsKept() {
	showID, seats := s.seedShow(1, 4000)
	res := s.reserve(s.onlineRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats})
	order := s.onlineOrder(res.Token)
	s.abandon(order.OrderID)

	s.provider.setCancelFail(true)

	rec := s.call(s.onlineRouter, http.MethodPost, "/admin/reservations/sweep", nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.call(s.onlineRouter, http.MethodGet, "/orders/"+order.OrderID, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("pending", decode[httpgin.OrderResponse](s, rec).Status)
	s.Equal(domain.SeatSold, s.seatStatus(seats[0]))

	// the payment that blocked the cancel settles the order
	s.Equal(http.StatusOK, s.deliver("evt_settled_"+order.OrderID, "payment_intent.succeeded", order.OrderID).Code)

	rec = s.call(s.onlineRouter, http.MethodGet, "/orders/"+order.OrderID, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("paid", decode[httpgin.OrderResponse](s, rec).Status)
}

func (s *IntegrationSuite) TestLatePaymentRevivesFailedOrder() {
	showID, seats := s.seedShow(2, 4000)
	res := s.reserve(s.onlineRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats})
	order := s.onlineOrder(res.Token)

	s.Equal(http.StatusOK, s.deliver("evt_declined_"+order.OrderID, "payment_intent.payment_failed", order.OrderID).Code)
	for _, id := range seats {
		s.Equal(domain.SeatAvailable, s.seatStatus(id))
	}

	// the buyer retried the card on the same intent
	s.Equal(http.StatusOK, s.deliver("evt_retry_"+order.OrderID, "payment_intent.succeeded", order.OrderID).Code)

	rec := s.call(s.onlineRouter, http.MethodGet, "/orders/"+order.OrderID, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	got := decode[httpgin.OrderResponse](s, rec)
	s.Equal("paid", got.Status)
	s.Require().Len(got.Tickets, 2)
	for _, t := range got.Tickets {
		s.Equal("valid", t.Status)
	}
	for _, id := range seats {
		s.Equal(domain.SeatSold, s.seatStatus(id))
	}
	s.False(s.provider.refunded("pi_" + order.OrderID))
}

func (s *IntegrationSuite) TestLatePaymentForResoldSeatIsRefunded() {
	showID, seats := s.seedShow(2, 4000)
	res := s.reserve(s.onlineRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats})
	order := s.onlineOrder(res.Token)

	s.Equal(http.StatusOK, s.deliver("evt_declined_"+order.OrderID, "payment_intent.payment_failed", order.OrderID).Code)

	// someone else takes one of the released seats
	s.reserve(s.boxOfficeRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats[:1]})

	s.Equal(http.StatusOK, s.deliver("evt_retry_"+order.OrderID, "payment_intent.succeeded", order.OrderID).Code)

	rec := s.call(s.onlineRouter, http.MethodGet, "/orders/"+order.OrderID, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	got := decode[httpgin.OrderResponse](s, rec)
	s.Equal("refunded", got.Status)
	for _, t := range got.Tickets {
		s.Equal("void", t.Status)
	}

	s.True(s.provider.refunded("pi_" + order.OrderID))
	s.Equal(domain.SeatReserved, s.seatStatus(seats[0]))
	s.Equal(domain.SeatAvailable, s.seatStatus(seats[1]))
}

func (s *IntegrationSuite) TestChargeRefundedWebhook() {
	showID, seats := s.seedShow(2, 4000)
	res := s.reserve(s.onlineRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats})
	order := s.onlineOrder(res.Token)

	s.Equal(http.StatusOK, s.deliver("evt_paid_"+order.OrderID, "payment_intent.succeeded", order.OrderID).Code)
	s.Equal(http.StatusOK, s.deliverRefund("evt_refund_"+order.OrderID, order.OrderID).Code)

	rec := s.call(s.onlineRouter, http.MethodGet, "/orders/"+order.OrderID, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	got := decode[httpgin.OrderResponse](s, rec)
	s.Equal("refunded", got.Status)
	for _, t := range got.Tickets {
		s.Equal("void", t.Status)
	}
	for _, id := range seats {
		s.Equal(domain.SeatAvailable, s.seatStatus(id))
	}

	// refunded from the dashboard, so nothing was sent back to the provider
	s.False(s.provider.refunded("pi_" + order.OrderID))
}

func (s *IntegrationSuite) onlineOrder(token string) httpgin.OrderResponse {
	rec := s.call(s.onlineRouter, http.MethodPost, "/orders", httpgin.CreateOrderRequest{
		Token:        token,
		CustomerName: "Dana Parent",
		Email:        "parent@example.com",
	}, nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	return decode[httpgin.OrderResponse](s, rec)
}

func (s *IntegrationSuite) deliver(eventID, typ, orderID string) *httptest.ResponseRecorder {
	object := fmt.Sprintf(`{"id":%q,"object":"payment_intent","metadata":{"order_id":%q}}`, "pi_"+orderID, orderID)
	return s.deliverObject(eventID, typ, object)
}

// deliverRefund sends charge.refunded for the charge of the order's intent.
func (s *IntegrationSuite) deliverRefund(eventID, orderID string) *httptest.ResponseRecorder {
	object := fmt.Sprintf(`{"id":%q,"object":"charge","payment_intent":%q,"refunded":true}`, "ch_"+orderID, "pi_"+orderID)
	return s.deliverObject(eventID, "charge.refunded", object)
}

func (s *IntegrationSuite) deliverObject(eventID, typ, object string) *httptest.ResponseRecorder {
	payload := fmt.Sprintf(
		`{"id":%q,"object":"event","api_version":"2025-03-31.basil","type":%q,"data":{"object":%s}}`,
		eventID, typ, object,
	)

	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})

	return s.call(s.onlineRouter, http.MethodPost, "/webhooks/stripe", sp.Payload,
		map[string]string{"Stripe-Signature": sp.Header})
}
