package web

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"obpm/pkg/auth"
	"obpm/pkg/models"
)

const userLocalKey = "user"

// NewAuthMiddleware resolves the bearer token of every request to a user and
// stores it in the request locals. Requests without a resolvable token are
// rejected with 401.
func NewAuthMiddleware(tokens auth.TokenStore) fiber.Handler {
	return func(c fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return unauthorized(c, auth.ErrMissingToken.Error())
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return unauthorized(c, auth.ErrMissingToken.Error())
		}

		user, err := tokens.UserForToken(c.Context(), token)
		if err != nil {
			if auth.IsAuthError(err) {
				return unauthorized(c, err.Error())
			}

			return internalError(c, err)
		}

		c.Locals(userLocalKey, user)

		return c.Next()
	}
}

// UserFromCtx returns the authenticated user stored by the auth middleware.
func UserFromCtx(c fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocalKey).(*models.User)

	return user
}
