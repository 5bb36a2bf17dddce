package utils

import (
	"strconv"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// GetClaims returns the verified access token claims, or nil when the
// request carries none.
func GetClaims(ctx iris.Context) *AccessToken {
	tok := jwt.Get(ctx)
	if tok == nil {
		return nil
	}
	claims, ok := tok.(*AccessToken)
	if !ok {
		return nil
	}
	return claims
}

// UserIDMiddleware guards routes with an {id} path parameter: the caller may
// only act on their own id.
func UserIDMiddleware(ctx iris.Context) {
	id := ctx.Params().Get("id")

	claims := GetClaims(ctx)
	if claims == nil {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	userID := strconv.FormatUint(uint64(claims.ID), 10)

	if userID != id {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}
	ctx.Next()
}

// UserIDFromTokenMiddleware extracts the user ID from the JWT and stores it
// in context. Use for routes without an {id} parameter in the URL.
func UserIDFromTokenMiddleware(ctx iris.Context) {
	claims := GetClaims(ctx)
	if claims == nil {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}
	ctx.Values().Set("userID", claims.ID)
	ctx.Next()
}

// AdminOnlyMiddleware ensures the requester has the admin role.
func AdminOnlyMiddleware(ctx iris.Context) {
	claims := GetClaims(ctx)
	if claims == nil || claims.Role != "admin" {
		ctx.StopWithJSON(iris.StatusForbidden, iris.Map{"error": "forbidden", "message": "admin access required"})
		return
	}
	ctx.Values().Set("userID", claims.ID)
	ctx.Next()
}
