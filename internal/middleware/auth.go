package middleware

import (
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"github.com/videostream/videostream_server/internal/user"
)

type AuthMiddleware struct {
	userService *user.UserService
}

func NewAuthMiddleware(userService *user.UserService) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
	}
}

func (am *AuthMiddleware) RequireAuth(handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		authenticatedUser, err := am.userService.ValidateJWTFromRequest(ctx)
		if err != nil {
			log.Debug().Err(err).Str("path", string(ctx.Path())).Msg("Authentication failed")
			ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
			return
		}

		user.SetOnRequest(ctx, authenticatedUser)

		handler(ctx)
	}
}

// OptionalAuth attaches the user when a valid bearer token is present and
// lets the request through anonymously otherwise.
func (am *AuthMiddleware) OptionalAuth(handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if len(ctx.Request.Header.Peek("Authorization")) > 0 {
			authenticatedUser, err := am.userService.ValidateJWTFromRequest(ctx)
			if err != nil {
				log.Debug().Err(err).Msg("Ignoring invalid bearer token, continuing anonymously")
			} else {
				user.SetOnRequest(ctx, authenticatedUser)
			}
		}

		handler(ctx)
	}
}

func (am *AuthMiddleware) RequireRole(role string, handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return am.RequireAuth(func(ctx *fasthttp.RequestCtx) {
		authenticatedUser, ok := user.FromRequest(ctx)
		if !ok || authenticatedUser.Role != role {
			log.Warn().Str("path", string(ctx.Path())).Msg("Insufficient permissions")
			ctx.Error("Forbidden", fasthttp.StatusForbidden)
			return
		}

		handler(ctx)
	})
}
