package http

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"

	"github.com/eryxon/uns-gateway/internal/http/middleware"
	"github.com/eryxon/uns-gateway/internal/repository"
)

type brokerHealth struct {
	BrokerID        string     `json:"broker_id"`
	Status          string     `json:"status"` // healthy|degraded|unknown
	WindowSize      int        `json:"window_size"`
	SuccessRate     float64    `json:"success_rate"`
	LastSuccessAt   *time.Time `json:"last_success_at,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	LastConnectedAt *time.Time `json:"last_connected_at,omitempty"`
}

// brokerHealthHandler derives health from the last window attempts instead of
// trusting the racy health columns alone: a pure read-time view of the log.
func brokerHealthHandler(brokers repository.BrokersRepository, attempts repository.AttemptsRepository, window int) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		b, err := brokers.GetByID(c.Request().Context(), tenantID, c.Param("id"))
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "broker not found"})
		}
		if err != nil {
			c.Logger().Errorf("broker lookup failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		rows, err := attempts.LastN(c.Request().Context(), tenantID, b.ID, window)
		if err != nil {
			c.Logger().Errorf("attempt history query failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		h := brokerHealth{
			BrokerID:        b.ID,
			Status:          "unknown",
			WindowSize:      len(rows),
			LastConnectedAt: b.LastConnectedAt,
		}
		if b.LastError != nil {
			h.LastError = *b.LastError
		}

		if len(rows) > 0 {
			succ := 0
			for _, a := range rows {
				if a.Success {
					succ++
					if h.LastSuccessAt == nil {
						at := a.CreatedAt
						h.LastSuccessAt = &at
					}
				}
			}
			h.SuccessRate = float64(succ) / float64(len(rows))
			// rows are newest-first
			if rows[0].Success {
				h.Status = "healthy"
			} else {
				h.Status = "degraded"
				h.LastError = rows[0].Error
			}
		}

		return c.JSON(http.StatusOK, h)
	}
}
