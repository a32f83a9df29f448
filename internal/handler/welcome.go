package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// WelcomeMessage is the greeting served at the root path.
const WelcomeMessage = "Добро пожаловать в Backend Service Lab 3!"

// Welcome handles GET /.
func Welcome(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": WelcomeMessage})
}
