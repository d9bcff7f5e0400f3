package serverutils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const AnonymousUser = "anonymous"

// OptionalJwtMiddleware sets the user_id local from a valid bearer token,
// or to AnonymousUser when the token is absent or unusable.
func OptionalJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		ctx.Locals("user_id", userFromHeader(ctx.Get("Authorization"), secret))
		return ctx.Next()
	}
}

func userFromHeader(authHeader, secret string) string {
	if secret == "" || len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return AnonymousUser
	}
	tokenStr := authHeader[7:]

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return AnonymousUser
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return AnonymousUser
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return AnonymousUser
	}
	return userID
}

// UserID reads the id set by OptionalJwtMiddleware.
func UserID(ctx *fiber.Ctx) string {
	if id, ok := ctx.Locals("user_id").(string); ok && id != "" {
		return id
	}
	return AnonymousUser
}
