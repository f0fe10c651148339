package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	apierr "github.com/opst/wlconf/pkg/api/errors"
	"github.com/opst/wlconf/pkg/audit"
	"github.com/opst/wlconf/pkg/cache"
	"github.com/opst/wlconf/pkg/domain"
)

// Cache is the cache store as seen from admin handlers.
type Cache interface {
	Stats() cache.Stats
	Entries() []cache.EntryInfo
	ClearAll() int
	InvalidateByPattern(pattern string) int
	InvalidateByTag(tag string) int
}

var _ Cache = &cache.Store{}

type CacheInfo struct {
	Stats   cache.Stats       `json:"stats"`
	Entries []cache.EntryInfo `json:"entries"`
}

func CacheStatsHandler(store Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, CacheInfo{Stats: store.Stats(), Entries: store.Entries()})
	}
}

type CacheClearResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	ClearedCount int    `json:"cleared_count"`
}

// CacheClearHandler drops entries matching query `pattern`, or all entries without it.
func CacheClearHandler(store Cache, auditor *Auditor) echo.HandlerFunc {
	return func(c echo.Context) error {
		pattern := c.QueryParam("pattern")

		var n int
		var message string
		if pattern == "" {
			n = store.ClearAll()
			message = fmt.Sprintf("cleared all %d cache entries", n)
		} else {
			n = store.InvalidateByPattern(pattern)
			message = fmt.Sprintf("cleared %d cache entries matching pattern '%s'", n, pattern)
		}

		target := pattern
		if target == "" {
			target = "all"
		}
		auditor.Record(c, audit.OpCacheClear, "cache/"+target, true, map[string]any{
			"cleared_count": n, "pattern": pattern,
		})
		return c.JSON(http.StatusOK, CacheClearResponse{Success: true, Message: message, ClearedCount: n})
	}
}

type CacheInvalidateResponse struct {
	Success          bool `json:"success"`
	InvalidatedCount int  `json:"invalidated_count"`
}

func CacheInvalidateHandler(store Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		tag := c.QueryParam("tag")
		if tag == "" {
			return apierr.BadRequest(`query "tag" is required`, nil)
		}
		return c.JSON(http.StatusOK, CacheInvalidateResponse{
			Success:          true,
			InvalidatedCount: store.InvalidateByTag(tag),
		})
	}
}

type CacheRefreshResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	// number of resources listed again, per kind (plural)
	Refreshed map[string]int `json:"refreshed"`
}

// CacheRefreshHandler drops cached listings and configurations and lists resources again.
//
// Query `resource_type` narrows down the kind (all kinds without it),
// and `namespace` narrows down the namespace.
func CacheRefreshHandler(conf Configurations, auditor *Auditor) echo.HandlerFunc {
	return func(c echo.Context) error {
		kinds := domain.Kinds()
		if rt := c.QueryParam("resource_type"); rt != "" {
			k, err := domain.ParseKind(rt)
			if err != nil {
				return apierr.FromError(err)
			}
			kinds = []domain.Kind{k}
		}
		namespace := c.QueryParam("namespace")

		resource := fmt.Sprintf("cache/%s/%s", orAll(c.QueryParam("resource_type")), orAll(namespace))
		refreshed := map[string]int{}
		for _, k := range kinds {
			items, err := conf.Refresh(c.Request().Context(), k, namespace)
			if err != nil {
				auditor.Record(c, audit.OpCacheRefresh, resource, false, map[string]any{"error": err.Error()})
				return apierr.FromError(err)
			}
			refreshed[k.Plural()] = len(items)
		}
		auditor.Record(c, audit.OpCacheRefresh, resource, true, map[string]any{"refreshed": refreshed})
		return c.JSON(http.StatusOK, CacheRefreshResponse{
			Success:   true,
			Message:   "cache refreshed",
			Refreshed: refreshed,
		})
	}
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}
