package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-train-seat-reservation/internal/application"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/train"
)

type JourneyHandler struct {
	service JourneyServiceInterface
}

func NewJourneyHandler(s JourneyServiceInterface) *JourneyHandler {
	return &JourneyHandler{service: s}
}

type PeriodResponse struct {
	Date   string `json:"date" example:"2017-10-29"`
	Period string `json:"period" example:"BLUE"`
}

type StopResponse struct {
	Station string    `json:"station" example:"Lyon"`
	At      time.Time `json:"at"`
}

type TimetableResponse struct {
	TrainNumber int            `json:"train_number" example:"6607"`
	Date        string         `json:"date" example:"2017-10-29"`
	Stops       []StopResponse `json:"stops"`
}

type JourneyResponse struct {
	TrainNumber      int       `json:"train_number" example:"6607"`
	DepartureStation string    `json:"departure_station" example:"Lyon"`
	ArrivalStation   string    `json:"arrival_station" example:"Avignon"`
	DepartureAt      time.Time `json:"departure_at"`
	ArrivalAt        time.Time `json:"arrival_at"`
}

type QuoteResponse struct {
	DepartureStation string `json:"departure_station" example:"Lyon"`
	ArrivalStation   string `json:"arrival_station" example:"Avignon"`
	Period           string `json:"period" example:"BLUE"`
	PassengerCount   int    `json:"passenger_count" example:"1"`
	Class            string `json:"class" example:"SECOND"`
	Price            string `json:"price" example:"22.80"`
}

func toTimetableResponse(tt *train.Timetable) TimetableResponse {
	stops := make([]StopResponse, 0, len(tt.Order))
	for _, st := range tt.Order {
		stops = append(stops, StopResponse{Station: st, At: tt.Stops[st]})
	}
	return TimetableResponse{TrainNumber: tt.Train, Date: tt.Date.Format(dateLayout), Stops: stops}
}

func toJourneyResponse(j train.Journey) JourneyResponse {
	return JourneyResponse{
		TrainNumber: j.TrainNumber, DepartureStation: j.DepartureStation, ArrivalStation: j.ArrivalStation,
		DepartureAt: j.DepartureAt, ArrivalAt: j.ArrivalAt,
	}
}

func toQuoteResponse(t *fare.Ticket) QuoteResponse {
	return QuoteResponse{
		DepartureStation: t.DepartureStation, ArrivalStation: t.ArrivalStation,
		Period: t.Period.String(), PassengerCount: t.PassengerCount,
		Class: t.Class.String(), Price: t.Price.StringFixed(2),
	}
}

// GetPeriod godoc
// @Summary 日付の料金期間を取得
// @Tags journeys
// @Produce json
// @Param date query string true "日付 (YYYY-MM-DD)"
// @Success 200 {object} PeriodResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /periods [get]
func (h *JourneyHandler) GetPeriod(c echo.Context) error {
	date, err := parseDate(c, "date")
	if err != nil {
		return err
	}
	p, err := h.service.ResolvePeriod(c.Request().Context(), date)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, PeriodResponse{Date: date.Format(dateLayout), Period: p.String()})
}

// MatchTrains godoc
// @Summary 区間を運行する列車を検索
// @Description 出発駅から到着駅へ向かう列車番号を返します。period を省略すると全期間が対象です
// @Tags journeys
// @Produce json
// @Param from query string true "出発駅"
// @Param to query string true "到着駅"
// @Param period query string false "期間 (BLUE/WHITE/RED)"
// @Success 200 {array} int
// @Failure 400 {object} map[string]string
// @Router /trains [get]
func (h *JourneyHandler) MatchTrains(c echo.Context) error {
	from, to := c.QueryParam("from"), c.QueryParam("to")
	if from == "" || to == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "from と to は必須です")
	}
	p, err := parsePeriod(c)
	if err != nil {
		return err
	}
	trains, err := h.service.MatchTrains(c.Request().Context(), from, to, p)
	if err != nil {
		return toHTTPError(err)
	}
	if trains == nil {
		trains = []int{}
	}
	return c.JSON(http.StatusOK, trains)
}

// GetTimetable godoc
// @Summary 列車の時刻表を取得
// @Tags journeys
// @Produce json
// @Param number path int true "列車番号"
// @Param date query string true "運行日 (YYYY-MM-DD)"
// @Success 200 {object} TimetableResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /trains/{number}/timetable [get]
func (h *JourneyHandler) GetTimetable(c echo.Context) error {
	number, err := parseTrainNumber(c)
	if err != nil {
		return err
	}
	date, err := parseDate(c, "date")
	if err != nil {
		return err
	}
	tt, err := h.service.BuildTimetable(c.Request().Context(), number, date)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toTimetableResponse(tt))
}

// SearchJourneys godoc
// @Summary 出発時刻の範囲で乗車候補を検索
// @Description from_date より後、to_date より前に出発する列車を出発時刻順に返します
// @Tags journeys
// @Produce json
// @Param from query string true "出発駅"
// @Param to query string true "到着駅"
// @Param from_date query string true "範囲の開始 (RFC3339)"
// @Param to_date query string true "範囲の終了 (RFC3339)"
// @Success 200 {array} JourneyResponse
// @Failure 400 {object} map[string]string
// @Router /journeys [get]
func (h *JourneyHandler) SearchJourneys(c echo.Context) error {
	from, to := c.QueryParam("from"), c.QueryParam("to")
	if from == "" || to == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "from と to は必須です")
	}
	start, err := time.Parse(time.RFC3339, c.QueryParam("from_date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from_date は RFC3339 形式で指定してください")
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("to_date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to_date は RFC3339 形式で指定してください")
	}
	journeys, err := h.service.GetTrainTimes(c.Request().Context(), from, to, start, end)
	if err != nil {
		return toHTTPError(err)
	}
	resp := make([]JourneyResponse, len(journeys))
	for i, j := range journeys {
		resp[i] = toJourneyResponse(j)
	}
	return c.JSON(http.StatusOK, resp)
}

// Quote godoc
// @Summary 運賃の見積もり
// @Tags journeys
// @Produce json
// @Param from query string true "出発駅"
// @Param to query string true "到着駅"
// @Param period query string true "期間 (BLUE/WHITE/RED)"
// @Param passengers query int true "乗客数"
// @Param class query string true "クラス (FIRST/SECOND)"
// @Success 200 {object} QuoteResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string "区間を運行する列車がない"
// @Failure 422 {object} map[string]string "運賃が未設定"
// @Router /tickets/quote [get]
func (h *JourneyHandler) Quote(c echo.Context) error {
	from, to := c.QueryParam("from"), c.QueryParam("to")
	if from == "" || to == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "from と to は必須です")
	}
	p, err := parsePeriod(c)
	if err != nil {
		return err
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "period は必須です")
	}
	class, err := parseClass(c)
	if err != nil {
		return err
	}
	if class == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "class は必須です")
	}
	passengers, err := strconv.Atoi(c.QueryParam("passengers"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "passengers は整数で指定してください")
	}
	ticket, err := h.service.BuyTicket(c.Request().Context(), application.BuyTicketInput{
		DepartureStation: from, ArrivalStation: to,
		Period: *p, PassengerCount: passengers, Class: *class,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toQuoteResponse(ticket))
}

