package web

import (
	"strings"

	"github.com/kataras/iris/v12"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nw-social/internal"
)

const userIDKey = "user_id"

// GetUserID returns the id VerifySession attached to the request.
func GetUserID(ctx iris.Context) (primitive.ObjectID, bool) {
	id, ok := ctx.Values().Get(userIDKey).(primitive.ObjectID)
	return id, ok
}

// bearerToken accepts both "Bearer <token>" and a bare token.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// VerifySession checks the Authorization token. It does not look the user up.
func (r *Router) VerifySession() iris.Handler {
	return func(ctx iris.Context) {
		raw := bearerToken(ctx.GetHeader("Authorization"))
		if raw == "" {
			r.fail(ctx, internal.AuthFailure("web", "VerifySession", "unauthorized", nil))
			return
		}

		id, err := r.Tokens.Parse(raw)
		if err != nil {
			r.fail(ctx, internal.AuthFailure("web", "VerifySession", "unauthorized", err))
			return
		}

		ctx.Values().Set(userIDKey, id)
		ctx.Next()
	}
}
