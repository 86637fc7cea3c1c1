package web

import (
	"github.com/kataras/iris/v12"

	"nw-social/internal"
	"nw-social/internal/validation"
)

func addRouteAuth(r *Router) []*Route {
	var tempRoutes []*Route

	tempRoutes = append(tempRoutes, &Route{
		Name:    "Signup",
		Path:    "/signup",
		JWT:     false,
		Limited: true,
		Func: func(ctx iris.Context) error {
			var s validation.Signup
			if err := ctx.ReadJSON(&s); err != nil {
				return internal.InvalidInput("web", "Signup", "invalid request body", err)
			}

			t, err := r.Auth.Signup(ctx.Request().Context(), s)
			if err != nil {
				return err
			}

			ctx.StatusCode(iris.StatusCreated)
			return ctx.JSON(iris.Map{"message": "user created", "token": t})
		},
		Type: RouteType_POST,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name:    "Signin",
		Path:    "/signin",
		JWT:     false,
		Limited: true,
		Func: func(ctx iris.Context) error {
			var l validation.Signin
			if err := ctx.ReadJSON(&l); err != nil {
				return internal.InvalidInput("web", "Signin", "invalid request body", err)
			}

			t, err := r.Auth.Signin(ctx.Request().Context(), l)
			if err != nil {
				return err
			}

			return ctx.JSON(iris.Map{"token": t})
		},
		Type: RouteType_POST,
	})

	return tempRoutes
}
