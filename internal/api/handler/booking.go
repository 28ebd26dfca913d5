package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-train-seat-reservation/internal/api"
	"github.com/sanosuguru/go-train-seat-reservation/internal/application"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
)

type BookingHandler struct {
	service BookingServiceInterface
}

func NewBookingHandler(s BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

type CreateBookingRequest struct {
	TrainNumber int       `json:"train_number" validate:"required,min=1" example:"6607"`
	DepartureAt time.Time `json:"departure_at" validate:"required" example:"2017-10-29T09:43:20Z"`
	From        string    `json:"from" validate:"required" example:"Lyon"`
	To          string    `json:"to" validate:"required" example:"Avignon"`
	Passengers  int       `json:"passengers" example:"1"`
	Class       string    `json:"class" validate:"required,oneof=FIRST SECOND" example:"SECOND"`
}

type BookingResponse struct {
	ID               string         `json:"id" example:"ABCDEF"`
	CustomerID       string         `json:"customer_id" example:"alice@example.com"`
	TrainNumber      int            `json:"train_number" example:"6607"`
	DepartureAt      time.Time      `json:"departure_at"`
	Period           string         `json:"period" example:"BLUE"`
	DepartureStation string         `json:"departure_station" example:"Lyon"`
	ArrivalStation   string         `json:"arrival_station" example:"Avignon"`
	Class            string         `json:"class" example:"SECOND"`
	PassengerCount   int            `json:"passenger_count" example:"1"`
	TotalPrice       string         `json:"total_price" example:"42.80"`
	Seats            []SeatResponse `json:"seats"`
	CreatedAt        time.Time      `json:"created_at"`
}

type CancelResponse struct {
	ID        string `json:"id" example:"ABCDEF"`
	Cancelled bool   `json:"cancelled" example:"true"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID: b.ID, CustomerID: b.CustomerID, TrainNumber: b.TrainNumber,
		DepartureAt: b.DepartureAt, Period: b.Period.String(),
		DepartureStation: b.DepartureStation, ArrivalStation: b.ArrivalStation,
		Class: b.Class.String(), PassengerCount: b.PassengerCount,
		TotalPrice: b.TotalPrice.StringFixed(2), Seats: toSeatResponses(b.Seats),
		CreatedAt: b.CreatedAt,
	}
}

// rejectionStatus は予約不可理由のHTTPステータス
// 空席不足だけは在庫の競合として 409 を返す
func rejectionStatus(r booking.Rejection) int {
	if r == booking.RejectInsufficientSeats {
		return http.StatusConflict
	}
	return http.StatusUnprocessableEntity
}

// Create godoc
// @Summary 乗車券を購入して座席を予約
// @Description 出発時刻・区間・クラスを指定して座席を確保します。業務ルールで受け付けない場合は理由コードを details に返します
// @Tags bookings
// @Accept json
// @Produce json
// @Param X-User-ID header string true "顧客ID"
// @Param request body CreateBookingRequest true "予約情報"
// @Success 201 {object} BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 409 {object} api.ErrorResponse "空席不足または競合"
// @Failure 422 {object} api.ErrorResponse "予約不可"
// @Router /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	customerID := c.Request().Header.Get("X-User-ID")
	if customerID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	class, err := fare.ParseTravelClass(req.Class)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	outcome, err := h.service.BuyTicketAndBook(c.Request().Context(), application.BookInput{
		TrainNumber: req.TrainNumber,
		DepartureAt: req.DepartureAt,
		From:        req.From,
		To:          req.To,
		Passengers:  req.Passengers,
		Class:       class,
		CustomerID:  customerID,
	})
	if err != nil {
		return toHTTPError(err)
	}
	if !outcome.Accepted() {
		status := rejectionStatus(outcome.Rejection)
		return c.JSON(status, api.ErrorResponse{
			Error:   outcome.Rejection.Message(),
			Code:    status,
			Details: string(outcome.Rejection),
		})
	}
	return c.JSON(http.StatusCreated, toBookingResponse(outcome.Booking))
}

// GetByID godoc
// @Summary 予約を取得
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} map[string]string
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(c echo.Context) error {
	b, err := h.service.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// List godoc
// @Summary 顧客の予約一覧を取得
// @Tags bookings
// @Produce json
// @Param X-User-ID header string true "顧客ID"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} BookingResponse
// @Failure 401 {object} map[string]string
// @Router /bookings [get]
func (h *BookingHandler) List(c echo.Context) error {
	customerID := c.Request().Header.Get("X-User-ID")
	if customerID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	bookings, err := h.service.ListCustomerBookings(c.Request().Context(), customerID, limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	resp := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary 予約を取り消す
// @Description 顧客本人の予約を取り消して座席を解放します。取り消す予約がなければ cancelled=false を返します
// @Tags bookings
// @Produce json
// @Param X-User-ID header string true "顧客ID"
// @Param id path string true "予約ID"
// @Success 200 {object} CancelResponse
// @Failure 401 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c echo.Context) error {
	customerID := c.Request().Header.Get("X-User-ID")
	if customerID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	id := c.Param("id")
	cancelled, err := h.service.CancelBooking(c.Request().Context(), id, customerID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, CancelResponse{ID: id, Cancelled: cancelled})
}
