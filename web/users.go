package web

import (
	"github.com/kataras/iris/v12"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nw-social/internal"
	"nw-social/internal/validation"
)

func currentUser(ctx iris.Context, fn string) (primitive.ObjectID, error) {
	id, ok := GetUserID(ctx)
	if !ok {
		return primitive.NilObjectID, internal.AuthFailure("web", fn, "unauthorized", nil)
	}
	return id, nil
}

func addRouteUsers(r *Router) []*Route {
	var tempRoutes []*Route

	tempRoutes = append(tempRoutes, &Route{
		Name: "Get Profile",
		Path: "/profile",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			id, err := currentUser(ctx, "Profile")
			if err != nil {
				return err
			}

			u, err := r.Users.Profile(ctx.Request().Context(), id)
			if err != nil {
				return err
			}
			return ctx.JSON(u)
		},
		Type: RouteType_GET,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Get Followers",
		Path: "/followers",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			id, err := currentUser(ctx, "Followers")
			if err != nil {
				return err
			}

			view, err := r.Users.Followers(ctx.Request().Context(), id)
			if err != nil {
				return err
			}
			return ctx.JSON(view)
		},
		Type: RouteType_GET,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Update Profile",
		Path: "/updateProfile",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			id, err := currentUser(ctx, "UpdateProfile")
			if err != nil {
				return err
			}

			var p validation.ProfileUpdate
			if err := ctx.ReadJSON(&p); err != nil {
				return internal.InvalidInput("web", "UpdateProfile", "invalid request body", err)
			}

			if err := r.Users.UpdateProfile(ctx.Request().Context(), id, p); err != nil {
				return err
			}
			return ctx.JSON(iris.Map{"message": "profile updated"})
		},
		Type: RouteType_PUT,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Follow",
		Path: "/follow/{userId}",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			id, err := currentUser(ctx, "Follow")
			if err != nil {
				return err
			}

			target, err := primitive.ObjectIDFromHex(ctx.Params().Get("userId"))
			if err != nil {
				return internal.InvalidInput("web", "Follow", "invalid user id", err)
			}

			if err := r.Users.Follow(ctx.Request().Context(), id, target); err != nil {
				return err
			}
			return ctx.JSON(iris.Map{"message": "user followed"})
		},
		Type: RouteType_PUT,
	})

	return tempRoutes
}
