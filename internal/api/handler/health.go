package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// healthCheckTimeout は依存先1件あたりの疎通確認の待ち時間
const healthCheckTimeout = 2 * time.Second

// Checker は依存先の疎通を確認する関数
type Checker func(ctx context.Context) error

// HealthHandler はヘルスチェックハンドラー
type HealthHandler struct {
	required map[string]Checker
	optional map[string]Checker
}

// NewHealthHandler はHealthHandlerを作成する
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{required: map[string]Checker{}, optional: map[string]Checker{}}
}

// Require は失敗したら 503 を返す依存先を登録する
func (h *HealthHandler) Require(name string, c Checker) *HealthHandler {
	h.required[name] = c
	return h
}

// Optional は失敗しても 200 のまま degraded と報告する依存先を登録する
func (h *HealthHandler) Optional(name string, c Checker) *HealthHandler {
	h.optional[name] = c
	return h
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Check はヘルスチェックを行う
// @Summary ヘルスチェック
// @Description データベースなど依存先の疎通を確認する
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Check(c echo.Context) error {
	ctx := c.Request().Context()
	resp := HealthResponse{Status: "ok", Timestamp: time.Now().Format(time.RFC3339)}
	code := http.StatusOK

	run := func(name string, check Checker) bool {
		if resp.Checks == nil {
			resp.Checks = map[string]string{}
		}
		cctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
		if err := check(cctx); err != nil {
			resp.Checks[name] = err.Error()
			return false
		}
		resp.Checks[name] = "ok"
		return true
	}

	for name, check := range h.optional {
		if !run(name, check) {
			resp.Status = "degraded"
		}
	}
	for name, check := range h.required {
		if !run(name, check) {
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, resp)
}
