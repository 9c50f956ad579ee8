package routing

import (
	"github.com/labstack/echo/v4"

	"avvai/internal/handlers/ai"
)

func InitRoutes(e *echo.Echo, handler *ai.AIHandler) {
	e.POST("/chat", handler.PostChat)
	e.GET("/health", handler.GetHealth)
}
