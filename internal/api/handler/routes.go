package handler

import "github.com/labstack/echo/v4"

// Handlers はルーティングに登録するハンドラーの組
type Handlers struct {
	Health  *HealthHandler
	Journey *JourneyHandler
	Seat    *SeatHandler
	Booking *BookingHandler
}

// RegisterRoutes はAPIのルートを登録する
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/health", h.Health.Check)

	v1 := e.Group("/api/v1")
	v1.GET("/periods", h.Journey.GetPeriod)
	v1.GET("/trains", h.Journey.MatchTrains)
	v1.GET("/trains/:number/timetable", h.Journey.GetTimetable)
	v1.GET("/journeys", h.Journey.SearchJourneys)
	v1.GET("/tickets/quote", h.Journey.Quote)

	v1.GET("/trains/:number/seats", h.Seat.GetAvailable)
	v1.GET("/trains/:number/seats/count", h.Seat.CountAvailable)

	v1.POST("/bookings", h.Booking.Create)
	v1.GET("/bookings", h.Booking.List)
	v1.GET("/bookings/:id", h.Booking.GetByID)
	v1.POST("/bookings/:id/cancel", h.Booking.Cancel)
}
