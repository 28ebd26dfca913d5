package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/train"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

const dateLayout = "2006-01-02"

// toHTTPError はサービス層のエラーをHTTPエラーに変換する
func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, booking.ErrBookingNotFound),
		errors.Is(err, period.ErrPeriodNotFound),
		errors.Is(err, train.ErrTimetableNotFound),
		errors.Is(err, train.ErrTrainNotRunning),
		errors.Is(err, train.ErrRouteNotServed),
		errors.Is(err, train.ErrNoTrain):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, fare.ErrRateNotFound):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, fare.ErrInvalidPassengerCount),
		errors.Is(err, booking.ErrCustomerIDRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, transaction.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "他の予約と競合しました。再度お試しください").SetInternal(err)
	case errors.Is(err, transaction.ErrStoreUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "サービスを一時的に利用できません").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "内部サーバーエラー").SetInternal(err)
}

// parseDate は YYYY-MM-DD 形式の日付クエリを解析する
func parseDate(c echo.Context, name string) (time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, name+" は必須です")
	}
	d, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, name+" は YYYY-MM-DD 形式で指定してください")
	}
	return d, nil
}

// parseTrainNumber はパスの列車番号を解析する
func parseTrainNumber(c echo.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "無効な列車番号")
	}
	return n, nil
}

// parseClass は省略可能なクラスクエリを解析する
func parseClass(c echo.Context) (*fare.TravelClass, error) {
	v := c.QueryParam("class")
	if v == "" {
		return nil, nil
	}
	class, err := fare.ParseTravelClass(v)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return &class, nil
}

// parsePeriod は省略可能な期間クエリを解析する
func parsePeriod(c echo.Context) (*period.Period, error) {
	v := c.QueryParam("period")
	if v == "" {
		return nil, nil
	}
	p, err := period.ParsePeriod(v)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return &p, nil
}
