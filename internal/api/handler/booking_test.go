package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-train-seat-reservation/internal/api"
	"github.com/sanosuguru/go-train-seat-reservation/internal/application"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

var lyonAt = time.Date(2017, 10, 29, 9, 43, 20, 0, time.UTC)

const createBody = `{
	"train_number": 6607,
	"departure_at": "2017-10-29T09:43:20Z",
	"from": "Lyon",
	"to": "Avignon",
	"passengers": 1,
	"class": "SECOND"
}`

func sampleBooking() *booking.Booking {
	return &booking.Booking{
		ID: "ABCDEF", CustomerID: "alice@example.com", TrainNumber: 6607,
		DepartureAt: lyonAt, Period: period.Blue,
		DepartureStation: "Lyon", ArrivalStation: "Avignon",
		Class: fare.Second, PassengerCount: 1,
		TotalPrice: decimal.RequireFromString("42.8"),
		Seats:      []seat.Seat{{Car: 2, Number: 1}},
		CreatedAt:  lyonAt.Add(-24 * time.Hour),
	}
}

func newPost(e *echo.Echo, target, body, customer string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if customer != "" {
		req.Header.Set("X-User-ID", customer)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestBookingHandler_Create(t *testing.T) {
	e := NewTestEcho()

	t.Run("正常に予約を作成できる", func(t *testing.T) {
		svc := new(MockBookingService)
		svc.On("BuyTicketAndBook", mock.Anything, application.BookInput{
			TrainNumber: 6607, DepartureAt: lyonAt, From: "Lyon", To: "Avignon",
			Passengers: 1, Class: fare.Second, CustomerID: "alice@example.com",
		}).Return(&application.BookingOutcome{Booking: sampleBooking()}, nil)
		c, rec := newPost(e, "/api/v1/bookings", createBody, "alice@example.com")

		require.NoError(t, NewBookingHandler(svc).Create(c))

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp BookingResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ABCDEF", resp.ID)
		assert.Equal(t, "42.80", resp.TotalPrice)
		assert.Equal(t, "SECOND", resp.Class)
		assert.Equal(t, "BLUE", resp.Period)
		assert.Equal(t, []SeatResponse{{Car: 2, Number: 1}}, resp.Seats)
		svc.AssertExpectations(t)
	})

	t.Run("ユーザーIDがない場合401", func(t *testing.T) {
		svc := new(MockBookingService)
		c, _ := newPost(e, "/api/v1/bookings", createBody, "")

		err := NewBookingHandler(svc).Create(c)

		assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))
		svc.AssertNotCalled(t, "BuyTicketAndBook")
	})

	invalid := []struct {
		name string
		body string
	}{
		{"JSONが不正", `{"train_number":`},
		{"列車番号なし", `{"departure_at":"2017-10-29T09:43:20Z","from":"Lyon","to":"Avignon","passengers":1,"class":"SECOND"}`},
		{"出発駅なし", `{"train_number":6607,"departure_at":"2017-10-29T09:43:20Z","to":"Avignon","passengers":1,"class":"SECOND"}`},
		{"不明なクラス", `{"train_number":6607,"departure_at":"2017-10-29T09:43:20Z","from":"Lyon","to":"Avignon","passengers":1,"class":"THIRD"}`},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockBookingService)
			c, _ := newPost(e, "/api/v1/bookings", tc.body, "alice@example.com")

			err := NewBookingHandler(svc).Create(c)

			assert.Equal(t, http.StatusBadRequest, httpCode(t, err))
			svc.AssertNotCalled(t, "BuyTicketAndBook")
		})
	}

	rejections := []struct {
		rejection booking.Rejection
		wantCode  int
	}{
		{booking.RejectInvalidPassengerCount, http.StatusUnprocessableEntity},
		{booking.RejectNoTimetable, http.StatusUnprocessableEntity},
		{booking.RejectStationNotServed, http.StatusUnprocessableEntity},
		{booking.RejectInsufficientSeats, http.StatusConflict},
		{booking.RejectFareUnavailable, http.StatusUnprocessableEntity},
	}
	for _, tc := range rejections {
		t.Run(fmt.Sprintf("予約不可: %s", tc.rejection), func(t *testing.T) {
			svc := new(MockBookingService)
			svc.On("BuyTicketAndBook", mock.Anything, mock.Anything).
				Return(&application.BookingOutcome{Rejection: tc.rejection}, nil)
			c, rec := newPost(e, "/api/v1/bookings", createBody, "alice@example.com")

			require.NoError(t, NewBookingHandler(svc).Create(c))

			assert.Equal(t, tc.wantCode, rec.Code)
			var resp api.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, string(tc.rejection), resp.Details)
			assert.Equal(t, tc.rejection.Message(), resp.Error)
		})
	}

	t.Run("乗客数0はサービスで予約不可と判定する", func(t *testing.T) {
		svc := new(MockBookingService)
		svc.On("BuyTicketAndBook", mock.Anything, mock.MatchedBy(func(in application.BookInput) bool {
			return in.Passengers == 0
		})).Return(&application.BookingOutcome{Rejection: booking.RejectInvalidPassengerCount}, nil)
		body := strings.Replace(createBody, `"passengers": 1`, `"passengers": 0`, 1)
		c, rec := newPost(e, "/api/v1/bookings", body, "alice@example.com")

		require.NoError(t, NewBookingHandler(svc).Create(c))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("再試行上限の競合は409", func(t *testing.T) {
		svc := new(MockBookingService)
		svc.On("BuyTicketAndBook", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("予約に失敗: %w", transaction.ErrConflict))
		c, _ := newPost(e, "/api/v1/bookings", createBody, "alice@example.com")

		err := NewBookingHandler(svc).Create(c)

		assert.Equal(t, http.StatusConflict, httpCode(t, err))
	})
}

func TestBookingHandler_GetByID(t *testing.T) {
	e := NewTestEcho()

	t.Run("予約を返す", func(t *testing.T) {
		svc := new(MockBookingService)
		svc.On("GetBooking", mock.Anything, "ABCDEF").Return(sampleBooking(), nil)
		c, rec := newGet(e, "/api/v1/bookings/ABCDEF")
		c.SetParamNames("id")
		c.SetParamValues("ABCDEF")

		require.NoError(t, NewBookingHandler(svc).GetByID(c))

		var resp BookingResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "alice@example.com", resp.CustomerID)
		assert.True(t, resp.DepartureAt.Equal(lyonAt))
	})

	t.Run("存在しない予約は404", func(t *testing.T) {
		svc := new(MockBookingService)
		svc.On("GetBooking", mock.Anything, "ZZZZZZ").Return(nil, booking.ErrBookingNotFound)
		c, _ := newGet(e, "/api/v1/bookings/ZZZZZZ")
		c.SetParamNames("id")
		c.SetParamValues("ZZZZZZ")

		err := NewBookingHandler(svc).GetByID(c)

		assert.Equal(t, http.StatusNotFound, httpCode(t, err))
	})
}

func TestBookingHandler_List(t *testing.T) {
	e := NewTestEcho()

	t.Run("顧客の予約一覧", func(t *testing.T) {
		svc := new(MockBookingService)
		svc.On("ListCustomerBookings", mock.Anything, "alice@example.com", 10, 5).
			Return([]*booking.Booking{sampleBooking()}, nil)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?limit=10&offset=5", nil)
		req.Header.Set("X-User-ID", "alice@example.com")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, NewBookingHandler(svc).List(c))

		var resp []BookingResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "ABCDEF", resp[0].ID)
		svc.AssertExpectations(t)
	})

	t.Run("件数指定なしはサービスの既定値に任せる", func(t *testing.T) {
		svc := new(MockBookingService)
		svc.On("ListCustomerBookings", mock.Anything, "alice@example.com", 0, 0).Return([]*booking.Booking{}, nil)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
		req.Header.Set("X-User-ID", "alice@example.com")
		rec := httptest.NewRecorder()

		require.NoError(t, NewBookingHandler(svc).List(e.NewContext(req, rec)))

		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("ユーザーIDがない場合401", func(t *testing.T) {
		c, _ := newGet(e, "/api/v1/bookings")
		err := NewBookingHandler(new(MockBookingService)).List(c)
		assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))
	})
}

func TestBookingHandler_Cancel(t *testing.T) {
	e := NewTestEcho()

	tests := []struct {
		name      string
		cancelled bool
	}{
		{"取り消した", true},
		{"取り消す予約がない", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockBookingService)
			svc.On("CancelBooking", mock.Anything, "ABCDEF", "alice@example.com").Return(tt.cancelled, nil)
			c, rec := newPost(e, "/api/v1/bookings/ABCDEF/cancel", "", "alice@example.com")
			c.SetParamNames("id")
			c.SetParamValues("ABCDEF")

			require.NoError(t, NewBookingHandler(svc).Cancel(c))

			assert.Equal(t, http.StatusOK, rec.Code)
			var resp CancelResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, CancelResponse{ID: "ABCDEF", Cancelled: tt.cancelled}, resp)
		})
	}

	t.Run("部分的な取消は500", func(t *testing.T) {
		svc := new(MockBookingService)
		svc.On("CancelBooking", mock.Anything, "ABCDEF", "alice@example.com").Return(false, booking.ErrPartialCancellation)
		c, _ := newPost(e, "/api/v1/bookings/ABCDEF/cancel", "", "alice@example.com")
		c.SetParamNames("id")
		c.SetParamValues("ABCDEF")

		err := NewBookingHandler(svc).Cancel(c)

		assert.Equal(t, http.StatusInternalServerError, httpCode(t, err))
	})

	t.Run("ユーザーIDがない場合401", func(t *testing.T) {
		c, _ := newPost(e, "/api/v1/bookings/ABCDEF/cancel", "", "")
		err := NewBookingHandler(new(MockBookingService)).Cancel(c)
		assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))
	})
}

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"予約なし", booking.ErrBookingNotFound, http.StatusNotFound},
		{"期間なし", period.ErrPeriodNotFound, http.StatusNotFound},
		{"顧客IDなし", booking.ErrCustomerIDRequired, http.StatusBadRequest},
		{"競合", transaction.ErrConflict, http.StatusConflict},
		{"ストア障害", transaction.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"その他", booking.ErrIDSpaceExhausted, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toHTTPError(fmt.Errorf("wrap: %w", tt.err)).Code)
		})
	}
}
