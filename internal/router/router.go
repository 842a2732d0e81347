package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/handler"
	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/membership"
)

// Setup configures all routes for the Echo server.
func Setup(e *echo.Echo, service *membership.Service, logger *zap.Logger) {
	// A malformed callback must never take the listener down.
	e.Use(echomw.Recover())

	paymentCallbackHandler := handler.NewPaymentCallbackHandler(service, logger)

	e.GET("/payment/zarinpal/callback", paymentCallbackHandler.ZarinPalCallback)
	// Root alias: the gateway-registered callback URL may point at the host root.
	e.GET("/", paymentCallbackHandler.ZarinPalCallback)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
}
