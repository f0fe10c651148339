package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/opst/wlconf/cmd/wlconfd/handlers"
	"github.com/opst/wlconf/pkg/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var API_ROOT = "/api"

func api(subpath string) string {
	if !strings.HasSuffix(subpath, "/") {
		subpath += "/"
	}
	return fmt.Sprintf("%s/%s", API_ROOT, subpath)
}

// Components are what the server serves.
type Components struct {
	Configurations handlers.Configurations
	Batch          handlers.Batch
	Cache          handlers.Cache
	Auditor        *handlers.Auditor

	// nil when the server does not verify tokens.
	Verifier *auth.Verifier

	Metrics prometheus.Gatherer
	Now     func() time.Time
}

func BuildServer(comp Components, loglevel string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	switch strings.ToLower(loglevel) {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "info":
		e.Logger.SetLevel(log.INFO)
	case "warn", "":
		e.Logger.SetLevel(log.WARN)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	case "off":
		e.Logger.SetLevel(log.OFF)
	default:
		e.Logger.SetLevel(log.WARN)
		e.Logger.Warnf("unknown loglevel: %s . fall-backed to warn", loglevel)
	}

	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}

	e.Pre(middleware.AddTrailingSlash())

	// logging for server-side latency.
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			meth := c.Request().Method
			path := c.Request().URL
			BEGIN := time.Now()
			c.Logger().Infof("< request @[%s] %s %s", BEGIN, meth, path)

			err := next(c)

			END := time.Now()
			c.Logger().Infof(
				"> response @[%s] status = %d (for request @[%s] %s %s) in %v / error = %+v",
				END, c.Response().Status, BEGIN, meth, path, END.Sub(BEGIN), err,
			)
			return err
		}
	})

	now := comp.Now
	if now == nil {
		now = time.Now
	}

	e.GET("/metrics/", echo.WrapHandler(promhttp.HandlerFor(comp.Metrics, promhttp.HandlerOpts{})))
	e.GET(api("health"), handlers.HealthHandler(comp.Cache, now))

	g := e.Group(API_ROOT, auth.Middleware(comp.Verifier))
	resource := fmt.Sprintf(":%s/:%s/:%s", handlers.ParamKind, handlers.ParamNamespace, handlers.ParamName)

	g.GET("/"+resource+"/config/", handlers.GetConfigHandler(comp.Configurations))
	g.PUT("/"+resource+"/config/", handlers.PutConfigHandler(comp.Configurations, comp.Auditor))
	g.POST("/"+resource+"/rollback/", handlers.RollbackHandler(comp.Configurations, comp.Auditor))
	g.GET("/"+resource+"/rollbacks/", handlers.ListRollbacksHandler(comp.Configurations))
	g.GET("/:"+handlers.ParamKind+"/", handlers.ListHandler(comp.Configurations))

	g.POST("/validate-config/", handlers.ValidateConfigHandler(comp.Configurations, now))
	g.POST("/config-diff/", handlers.ConfigDiffHandler(comp.Configurations, now))
	g.POST("/batch-operations/", handlers.BatchHandler(comp.Batch, comp.Auditor))

	g.GET("/admin/cache/stats/", handlers.CacheStatsHandler(comp.Cache))
	g.POST("/admin/cache/clear/", handlers.CacheClearHandler(comp.Cache, comp.Auditor))
	g.POST("/admin/cache/invalidate/", handlers.CacheInvalidateHandler(comp.Cache))
	g.POST("/admin/cache/refresh/", handlers.CacheRefreshHandler(comp.Configurations, comp.Auditor))

	return e
}
