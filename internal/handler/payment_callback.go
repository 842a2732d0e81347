package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/membership"
)

// PaymentCallbackHandler answers ZarinPal's synchronous callback request.
// The response body is for the gateway, not the end user; user notification
// happens through the bot inside the membership service.
type PaymentCallbackHandler struct {
	service *membership.Service
	logger  *zap.Logger
}

func NewPaymentCallbackHandler(service *membership.Service, logger *zap.Logger) *PaymentCallbackHandler {
	return &PaymentCallbackHandler{
		service: service,
		logger:  logger,
	}
}

// ZarinPalCallback handles GET /?Authority=<token>&Status=<OK|NOK>.
func (h *PaymentCallbackHandler) ZarinPalCallback(c echo.Context) error {
	authority := c.QueryParam("Authority")
	status := c.QueryParam("Status")

	if authority == "" || status == "" {
		return c.String(http.StatusBadRequest, "Invalid callback parameters")
	}

	h.logger.Info("payment callback received",
		zap.String("authority", authority), zap.String("status", status))

	outcome := h.service.OnPaymentCallback(c.Request().Context(), authority, status == "OK")
	switch outcome {
	case membership.CallbackVerified:
		return c.String(http.StatusOK, "Payment verified")
	case membership.CallbackUnknownAuthority:
		return c.String(http.StatusNotFound, "No pending payment found for this authority")
	default:
		return c.String(http.StatusBadRequest, "Payment verification failed")
	}
}
