package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/eryxon/uns-gateway/internal/http/middleware"
	"github.com/eryxon/uns-gateway/internal/repository"
)

func listAttemptsHandler(attempts repository.AttemptsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		f := repository.AttemptsFilter{
			TenantID:  tenantID,
			BrokerID:  strings.TrimSpace(c.QueryParam("broker_id")),
			EventType: strings.TrimSpace(c.QueryParam("event_type")),
			Limit:     50,
		}
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				f.Limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				f.Offset = n
			}
		}
		if v := c.QueryParam("success"); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				f.Success = &b
			}
		}

		rows, err := attempts.List(c.Request().Context(), f)
		if err != nil {
			c.Logger().Errorf("attempt log query failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   f.Limit,
			"offset":  f.Offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
