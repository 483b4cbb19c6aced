package integration_test

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/studioline/showtix/internal/domain"
	redisrepo "github.com/studioline/showtix/internal/repository/redis"
	"github.com/studioline/showtix/internal/service/reservation"
	httpgin "github.com/studioline/showtix/internal/transport/http/gin"
)

func (s *IntegrationSuite) TestReserveAndCheck() {
	showID, seats := s.seedShow(4, 2500)

	res := s.reserve(s.boxOfficeRouter, httpgin.ReserveRequest{
		ShowID:  showID,
		SeatIDs: seats[:2],
		Email:   "parent@example.com",
	})

	s.NotEmpty(res.Token)
	s.True(res.IsActive)
	s.Equal(2, res.SeatCount)
	s.InDelta(600, res.TimeRemainingSeconds, 5)
	s.Equal(domain.SeatReserved, s.seatStatus(seats[0]))

	rec := s.call(s.boxOfficeRouter, http.MethodGet, "/seat-reservations/check?token="+res.Token, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	got := decode[httpgin.ReservationResponse](s, rec)
	s.Equal(res.ReservationID, got.ReservationID)
	s.Empty(got.Token)
	s.Len(got.Seats, 2)

	rec = s.call(s.boxOfficeRouter, http.MethodGet, "/shows/"+itoa(showID)+"/availability", nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	counts := decode[httpgin.CountsResponse](s, rec)
	s.Equal(int64(2), counts.Available)
	s.Equal(int64(2), counts.Reserved)
	s.Equal(int64(4), counts.Total)
}

func (s *IntegrationSuite) TestReserveConflict() {
	showID, seats := s.seedShow(3, 1000)

	s.reserve(s.boxOfficeRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats[:2]})

	rec := s.call(s.boxOfficeRouter, http.MethodPost, "/seat-reservations/reserve",
		httpgin.ReserveRequest{ShowID: showID, SeatIDs: []int64{seats[1], seats[2]}}, nil)

	s.Require().Equal(http.StatusConflict, rec.Code)
	s.Equal([]int64{seats[1]}, decode[httpgin.ErrorResponse](s, rec).SeatIDs)

	// nothing of the failed request was written
	s.Equal(domain.SeatAvailable, s.seatStatus(seats[2]))
}

func (s *IntegrationSuite) TestConcurrentReservationsNeverDoubleBook() {
	showID, seats := s.seedShow(1, 1000)

	const workers = 8

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.boxOffice.Reservation.Reserve(context.Background(), reservation.ReserveInput{
				ShowID:  showID,
				SeatIDs: seats,
			}, "")
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, success)
}

func (s *IntegrationSuite) TestReserveValidation() {
	showID, seats := s.seedShow(11, 1000)

	rec := s.call(s.boxOfficeRouter, http.MethodPost, "/seat-reservations/reserve",
		httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats}, nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.call(s.boxOfficeRouter, http.MethodPost, "/seat-reservations/reserve",
		httpgin.ReserveRequest{ShowID: showID, SeatIDs: []int64{seats[0], seats[0]}}, nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.call(s.boxOfficeRouter, http.MethodPost, "/seat-reservations/reserve",
		httpgin.ReserveRequest{ShowID: showID, SeatIDs: []int64{1 << 40}}, nil)
	s.Equal(http.StatusNotFound, rec.Code)

	otherShow, otherSeats := s.seedShow(1, 1000)
	s.NotEqual(showID, otherShow)
	rec = s.call(s.boxOfficeRouter, http.MethodPost, "/seat-reservations/reserve",
		httpgin.ReserveRequest{ShowID: showID, SeatIDs: otherSeats}, nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.call(s.boxOfficeRouter, http.MethodPost, "/seat-reservations/reserve",
		httpgin.ReserveRequest{ShowID: 1 << 40, SeatIDs: seats[:1]}, nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *IntegrationSuite) TestReleaseIsIdempotent() {
	showID, seats := s.seedShow(2, 1000)
	res := s.reserve(s.boxOfficeRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats})

	rec := s.call(s.boxOfficeRouter, http.MethodPost, "/seat-reservations/release",
		httpgin.ReleaseRequest{Token: res.Token}, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	first := decode[httpgin.ReleaseResponse](s, rec)
	s.Equal(int64(2), first.ReleasedSeats)
	s.False(first.AlreadyReleased)

	rec = s.call(s.boxOfficeRouter, http.MethodPost, "/seat-reservations/release",
		httpgin.ReleaseRequest{ReservationID: res.ReservationID}, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	second := decode[httpgin.ReleaseResponse](s, rec)
	s.Zero(second.ReleasedSeats)
	s.True(second.AlreadyReleased)

	for _, id := range seats {
		s.Equal(domain.SeatAvailable, s.seatStatus(id))
	}
}

func (s *IntegrationSuite) TestLapsedHoldIsAvailableBeforeSweep() {
	showID, seats := s.seedShow(2, 1000)
	res := s.reserve(s.boxOfficeRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats[:1]})
	s.lapse(res.ReservationID)

	rec := s.call(s.boxOfficeRouter, http.MethodGet, "/seat-reservations/check?reservation_id="+res.ReservationID, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	view := decode[httpgin.ReservationResponse](s, rec)
	s.True(view.IsExpired)
	s.Zero(view.TimeRemainingSeconds)

	rec = s.call(s.boxOfficeRouter, http.MethodGet, "/shows/"+itoa(showID)+"/seats?only=available", nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Len(decode[[]httpgin.SeatResponse](s, rec), 2)

	// a lapsed hold can be claimed by someone else
	s.reserve(s.boxOfficeRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats[:1]})
}

func (s *IntegrationSuite) TestCheckListsOnlySeatsStillHeld() {
	showID, seats := s.seedShow(2, 1000)
	first := s.reserve(s.boxOfficeRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats})
	s.lapse(first.ReservationID)

	second := s.reserve(s.boxOfficeRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats[:1]})

	rec := s.call(s.boxOfficeRouter, http.MethodGet, "/seat-reservations/check?token="+first.Token, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	view := decode[httpgin.ReservationResponse](s, rec)
	s.True(view.IsExpired)
	s.Equal(1, view.SeatCount)
	s.Require().Len(view.Seats, 1)
	s.Equal(seats[1], view.Seats[0].ID)

	// seats bought through the order stay listed
	rec = s.call(s.boxOfficeRouter, http.MethodPost, "/orders", httpgin.CreateOrderRequest{
		Token:        second.Token,
		CustomerName: "Dana Parent",
		Email:        "parent@example.com",
	}, nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.call(s.boxOfficeRouter, http.MethodGet, "/seat-reservations/check?token="+second.Token, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(1, decode[httpgin.ReservationResponse](s, rec).SeatCount)
}

func (s *IntegrationSuite) TestSweepReleasesExpiredHolds() {
	showID, seats := s.seedShow(3, 1000)
	res := s.reserve(s.boxOfficeRouter, httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats})
	s.lapse(res.ReservationID)

	rec := s.call(s.boxOfficeRouter, http.MethodPost, "/admin/reservations/sweep", nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.GreaterOrEqual(decode[httpgin.SweepResponse](s, rec).ReleasedSeats, int64(3))

	for _, id := range seats {
		s.Equal(domain.SeatAvailable, s.seatStatus(id))
	}

	rec = s.call(s.boxOfficeRouter, http.MethodGet, "/seat-reservations/check?token="+res.Token, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.False(decode[httpgin.ReservationResponse](s, rec).IsActive)
}

func (s *IntegrationSuite) TestIdempotentReserve() {
	showID, seats := s.seedShow(2, 1000)
	headers := map[string]string{"Idempotency-Key": "retry-" + itoa(showID)}
	body := httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats[:1]}

	first := s.call(s.boxOfficeRouter, http.MethodPost, "/seat-reservations/reserve", body, headers)
	s.Require().Equal(http.StatusCreated, first.Code)

	second := s.call(s.boxOfficeRouter, http.MethodPost, "/seat-reservations/reserve", body, headers)
	s.Require().Equal(http.StatusCreated, second.Code)
	s.JSONEq(first.Body.String(), second.Body.String())
}

func (s *IntegrationSuite) TestHouseSeats() {
	showID, seats := s.seedShow(2, 1000)
	path := "/admin/shows/" + itoa(showID) + "/seats/"

	rec := s.call(s.boxOfficeRouter, http.MethodPost, path+"hold", httpgin.SeatIDsRequest{SeatIDs: seats[:1]}, nil)
	s.Require().Equal(http.StatusNoContent, rec.Code)
	s.Equal(domain.SeatHeld, s.seatStatus(seats[0]))

	rec = s.call(s.boxOfficeRouter, http.MethodPost, "/seat-reservations/reserve",
		httpgin.ReserveRequest{ShowID: showID, SeatIDs: seats[:1]}, nil)
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.call(s.boxOfficeRouter, http.MethodPost, path+"unhold", httpgin.SeatIDsRequest{SeatIDs: seats[:1]}, nil)
	s.Require().Equal(http.StatusNoContent, rec.Code)
	s.Equal(domain.SeatAvailable, s.seatStatus(seats[0]))
}

func (s *IntegrationSuite) TestRateLimiter() {
	limiter := redisrepo.NewSlidingWindowLimiter(s.rdb, "it-limit", 2, time.Minute)
	ctx := context.Background()

	for range 2 {
		d, err := limiter.Allow(ctx, "ip:203.0.113.9")
		s.Require().NoError(err)
		s.True(d.Allowed)
	}

	d, err := limiter.Allow(ctx, "ip:203.0.113.9")
	s.Require().NoError(err)
	s.False(d.Allowed)
	s.Positive(d.RetryAfter)

	d, err = limiter.Allow(ctx, "ip:203.0.113.10")
	s.Require().NoError(err)
	s.True(d.Allowed)
}
