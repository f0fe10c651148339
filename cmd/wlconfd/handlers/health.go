package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opst/wlconf/pkg/buildtime"
	"github.com/opst/wlconf/pkg/cache"
)

type Health struct {
	Status     string      `json:"status"`
	Version    string      `json:"version"`
	CacheStats cache.Stats `json:"cache_stats"`
	Timestamp  time.Time   `json:"timestamp"`
}

func HealthHandler(store Cache, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, Health{Status: "healthy", Version: buildtime.VersionString(), CacheStats: store.Stats(), Timestamp: now()})
	}
}
