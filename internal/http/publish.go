package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/eryxon/uns-gateway/internal/http/middleware"
	"github.com/eryxon/uns-gateway/internal/metrics"
	"github.com/eryxon/uns-gateway/internal/model"
)

// DispatchService is what the publish endpoint needs from the coordinator.
type DispatchService interface {
	Dispatch(ctx context.Context, env *model.EventEnvelope) (model.DispatchResult, error)
}

type publishResponse struct {
	Success   bool                 `json:"success"`
	Message   string               `json:"message"`
	Published int                  `json:"published"`
	Failed    int                  `json:"failed"`
	Results   []model.BrokerResult `json:"results"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func publishEventHandler(svc DispatchService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var env model.EventEnvelope
		if err := c.Bind(&env); err != nil {
			metrics.EventsTotal.WithLabelValues("http", "rejected").Inc()
			return c.JSON(http.StatusBadRequest, errorResponse{
				Code: "VALIDATION_ERROR", Message: "malformed request body",
			})
		}

		// The envelope names its tenant; it must be the authenticated one.
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		if env.TenantID != "" && env.TenantID != tenantID {
			metrics.EventsTotal.WithLabelValues("http", "rejected").Inc()
			return c.JSON(http.StatusForbidden, errorResponse{
				Code: "TENANT_MISMATCH", Message: "envelope tenant_id does not match API key",
			})
		}

		res, err := svc.Dispatch(c.Request().Context(), &env)
		if err != nil {
			if errors.Is(err, model.ErrValidation) {
				metrics.EventsTotal.WithLabelValues("http", "rejected").Inc()
				return c.JSON(http.StatusBadRequest, errorResponse{
					Code: "VALIDATION_ERROR", Message: err.Error(),
				})
			}
			log.Errorf("dispatch failed: %v", err)
			return c.JSON(http.StatusInternalServerError, errorResponse{
				Code: "INTERNAL", Message: "dispatch failed",
			})
		}

		metrics.EventsTotal.WithLabelValues("http", "accepted").Inc()

		msg := "no subscribed brokers"
		if n := res.Published + res.Failed; n > 0 {
			msg = fmt.Sprintf("published to %d of %d broker(s)", res.Published, n)
		}
		return c.JSON(http.StatusOK, publishResponse{
			Success:   true,
			Message:   msg,
			Published: res.Published,
			Failed:    res.Failed,
			Results:   res.Results,
		})
	}
}
