package web

import (
	"context"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func addRouteHealth(r *Router) []*Route {
	var tempRoutes []*Route

	tempRoutes = append(tempRoutes, &Route{
		Name: "Liveness",
		Path: "/healthz",
		Func: func(ctx iris.Context) error {
			return ctx.JSON(iris.Map{"status": "ok"})
		},
		Type: RouteType_GET,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Readiness",
		Path: "/readyz",
		Func: func(ctx iris.Context) error {
			c, cancel := context.WithTimeout(ctx.Request().Context(), 2*time.Second)
			defer cancel()

			if r.DB == nil || r.DB.Ping(c) != nil {
				ctx.StatusCode(iris.StatusServiceUnavailable)
				return ctx.JSON(iris.Map{"status": "unavailable"})
			}
			return ctx.JSON(iris.Map{"status": "ready"})
		},
		Type: RouteType_GET,
	})

	metrics := iris.FromStd(promhttp.Handler())
	tempRoutes = append(tempRoutes, &Route{
		Name: "Metrics",
		Path: "/metrics",
		Func: func(ctx iris.Context) error {
			metrics(ctx)
			return nil
		},
		Type: RouteType_GET,
	})

	return tempRoutes
}
