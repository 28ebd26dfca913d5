package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-train-seat-reservation/internal/application"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/seat"
)

type SeatHandler struct {
	service SeatServiceInterface
}

func NewSeatHandler(s SeatServiceInterface) *SeatHandler {
	return &SeatHandler{service: s}
}

type SeatResponse struct {
	Car    int `json:"car" example:"2"`
	Number int `json:"number" example:"1"`
}

type SeatCountResponse struct {
	TrainNumber int    `json:"train_number" example:"6607"`
	Date        string `json:"date" example:"2017-10-29"`
	Available   int    `json:"available" example:"3"`
}

func toSeatResponses(seats []seat.Seat) []SeatResponse {
	resp := make([]SeatResponse, len(seats))
	for i, s := range seats {
		resp[i] = SeatResponse{Car: s.Car, Number: s.Number}
	}
	return resp
}

func (h *SeatHandler) bindQuery(c echo.Context) (application.SeatQuery, error) {
	number, err := parseTrainNumber(c)
	if err != nil {
		return application.SeatQuery{}, err
	}
	date, err := parseDate(c, "date")
	if err != nil {
		return application.SeatQuery{}, err
	}
	from, to := c.QueryParam("from"), c.QueryParam("to")
	if from == "" || to == "" {
		return application.SeatQuery{}, echo.NewHTTPError(http.StatusBadRequest, "from と to は必須です")
	}
	class, err := parseClass(c)
	if err != nil {
		return application.SeatQuery{}, err
	}
	return application.SeatQuery{
		TrainNumber: number, Date: date,
		DepartureStation: from, ArrivalStation: to, Class: class,
	}, nil
}

// GetAvailable godoc
// @Summary 空席一覧を取得
// @Description 指定区間で予約可能な座席を号車・座席番号順に返します
// @Tags seats
// @Produce json
// @Param number path int true "列車番号"
// @Param date query string true "運行日 (YYYY-MM-DD)"
// @Param from query string true "出発駅"
// @Param to query string true "到着駅"
// @Param class query string false "クラス (FIRST/SECOND)"
// @Success 200 {array} SeatResponse
// @Failure 400 {object} map[string]string
// @Router /trains/{number}/seats [get]
func (h *SeatHandler) GetAvailable(c echo.Context) error {
	q, err := h.bindQuery(c)
	if err != nil {
		return err
	}
	seats, err := h.service.AvailableSeats(c.Request().Context(), q)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toSeatResponses(seats))
}

// CountAvailable godoc
// @Summary 空席数を取得
// @Tags seats
// @Produce json
// @Param number path int true "列車番号"
// @Param date query string true "運行日 (YYYY-MM-DD)"
// @Param from query string true "出発駅"
// @Param to query string true "到着駅"
// @Param class query string false "クラス (FIRST/SECOND)"
// @Success 200 {object} SeatCountResponse
// @Failure 400 {object} map[string]string
// @Router /trains/{number}/seats/count [get]
func (h *SeatHandler) CountAvailable(c echo.Context) error {
	q, err := h.bindQuery(c)
	if err != nil {
		return err
	}
	n, err := h.service.CountAvailableSeats(c.Request().Context(), q)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, SeatCountResponse{
		TrainNumber: q.TrainNumber, Date: q.Date.Format(dateLayout), Available: n,
	})
}
