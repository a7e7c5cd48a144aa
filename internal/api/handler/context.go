package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/s3ui/bucketgate/internal/api/middleware"
	"github.com/s3ui/bucketgate/internal/core/domain"
)

// messageResponse is the {"message": ...} envelope every endpoint uses for
// acknowledgements and errors.
type messageResponse struct {
	Message string `json:"message"`
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, messageResponse{Message: msg})
}

// ctxIdentity returns the identity injected by the Auth middleware, failing
// fast with 401 when the route was mounted without it.
func ctxIdentity(c echo.Context) (*domain.Identity, error) {
	identity := middleware.IdentityFrom(c)
	if identity == nil || identity.UserID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return identity, nil
}

func ctxToken(c echo.Context) (string, error) {
	token, _ := c.Get(middleware.TokenKey).(string)
	if token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}
	return token, nil
}
