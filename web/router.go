package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/iris-contrib/middleware/cors"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/recover"
	log "github.com/sirupsen/logrus"

	"nw-social/internal"
	"nw-social/internal/auth"
	"nw-social/internal/credentials"
	"nw-social/internal/users"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	App         *iris.Application
	Auth        *auth.Service
	Users       *users.Service
	Tokens      *credentials.Tokens
	DB          Pinger
	AuthLimiter *RateLimiter
	Logger      *log.Logger
	Debug       bool
	Routes      []*Route
}

type Options struct {
	Auth        *auth.Service
	Users       *users.Service
	Tokens      *credentials.Tokens
	DB          Pinger
	AuthLimiter *RateLimiter
	Logger      *log.Logger
	Debug       bool
}

func NewRouter(o Options) *Router {
	logger := o.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	app := iris.New()
	app.Logger().SetLevel("disable")

	return &Router{
		App:         app,
		Auth:        o.Auth,
		Users:       o.Users,
		Tokens:      o.Tokens,
		DB:          o.DB,
		AuthLimiter: o.AuthLimiter,
		Logger:      logger,
		Debug:       o.Debug,
	}
}

func (r *Router) Init() {
	if r.Debug {
		r.Logger.Warning("Cross Origin requests allowed (ENV::DEBUG)")
		r.App.UseRouter(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	r.App.UseRouter(recover.New())
	r.App.UseRouter(RequestIDMiddleware)
	r.App.UseRouter(ProxyIPMiddleware)
	r.App.Use(r.AccessLog)
	r.App.Use(Metrics)
	r.App.OnAnyErrorCode(func(ctx iris.Context) {
		ctx.JSON(iris.Map{"message": http.StatusText(ctx.GetStatusCode())})
	})

	r.Routes = append(r.Routes, addRouteHealth(r)...)
	r.Routes = append(r.Routes, addRouteAuth(r)...)
	r.Routes = append(r.Routes, addRouteUsers(r)...)

	r.Logger.Info("Loading all routes...")
	r.Logger.Infof("Found %d route(s).", len(r.Routes))

	r.Logger.Info("Loading routes without JWT...")
	r.LoadRoutes(false)

	r.Logger.Info("Loading JWT routes...")
	r.LoadRoutes(true)
}

// LoadRoutes registers the routes whose JWT flag matches.
func (r *Router) LoadRoutes(JWT bool) {
	for _, v := range r.Routes {
		if v.JWT != JWT {
			continue
		}

		var handlers []iris.Handler
		if v.JWT {
			handlers = append(handlers, r.VerifySession())
		}
		if v.Limited && r.AuthLimiter != nil {
			handlers = append(handlers, r.RateLimit(r.AuthLimiter))
		}
		handlers = append(handlers, r.handle(v))

		r.Logger.Debugf("Loaded route: %s (%s) - %s", v.Name, v.Type, v.Path)
		r.App.Handle(string(v.Type), v.Path, handlers...)
	}
}

// handle is the error boundary of every route.
func (r *Router) handle(v *Route) iris.Handler {
	return func(ctx iris.Context) {
		if err := v.Func(ctx); err != nil {
			r.fail(ctx, err)
		}
	}
}

// fail logs err and writes its client-safe form.
func (r *Router) fail(ctx iris.Context, err error) {
	ef := internal.AsErrorFormat(err)
	if ef.Package == "" {
		ef.Package = "web"
	}
	ef.Print(r.Logger.WithFields(log.Fields{
		"request_id": ctx.Values().GetString(requestIDKey),
		"path":       ctx.Path(),
	}))

	body := iris.Map{"message": ef.Message}
	if ef.Detail != "" {
		body["error"] = ef.Detail
	}
	ctx.StopWithJSON(ef.Kind.Status(), body)
}

func (r *Router) Listen(host string) error {
	err := r.App.Listen(host,
		iris.WithoutInterruptHandler,
		iris.WithoutServerError(iris.ErrServerClosed),
		iris.WithoutStartupLog,
	)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (r *Router) Shutdown(ctx context.Context) error {
	return r.App.Shutdown(ctx)
}
