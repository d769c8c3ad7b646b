package user

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"
)

const (
	headerAuthorization = "Authorization"
	headerBearer        = "Bearer"

	userValueKey = "user"

	RoleCreator = "creator"
	RoleAdmin   = "admin"
)

// User is the identity carried by a bearer token. Accounts themselves live
// with the external auth service.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Config struct {
	JWTSecret          string `mapstructure:"jwt_secret"`
	JWTIssuer          string `mapstructure:"jwt_issuer"`
	JWTExpirationHours int    `mapstructure:"jwt_expiration_hours"`
}

type JWTClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// SetOnRequest attaches the authenticated user to the request.
func SetOnRequest(ctx *fasthttp.RequestCtx, u *User) {
	ctx.SetUserValue(userValueKey, u)
}

// FromRequest returns the user attached by the auth middleware, if any.
func FromRequest(ctx *fasthttp.RequestCtx) (*User, bool) {
	u, ok := ctx.UserValue(userValueKey).(*User)
	return u, ok && u != nil
}
