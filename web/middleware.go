package web

import (
	"time"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	log "github.com/sirupsen/logrus"
)

const requestIDKey = "request_id"

// RequestIDMiddleware keeps an incoming X-Request-ID or assigns a new one.
func RequestIDMiddleware(ctx iris.Context) {
	id := ctx.GetHeader("X-Request-ID")
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}
	ctx.Values().Set(requestIDKey, id)
	ctx.Header("X-Request-ID", id)
	ctx.Next()
}

func (r *Router) AccessLog(ctx iris.Context) {
	start := time.Now()
	ctx.Next()

	r.Logger.WithFields(log.Fields{
		"method":     ctx.Method(),
		"path":       ctx.Path(),
		"status":     ctx.GetStatusCode(),
		"duration":   time.Since(start).String(),
		"client_ip":  ctx.Values().GetString(clientIPKey),
		"request_id": ctx.Values().GetString(requestIDKey),
	}).Info("request")
}
