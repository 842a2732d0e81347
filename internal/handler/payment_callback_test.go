package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/membership"
	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/models"
	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/payment"
)

type stubStore struct {
	pending map[string]*models.Member
}

func (s *stubStore) FindByID(int64) (*models.Member, error)     { return nil, nil }
func (s *stubStore) Create(*models.Member) error                { return nil }
func (s *stubStore) Update(int64, map[string]interface{}) error { return nil }
func (s *stubStore) MarkPendingFailed(int64) error              { return nil }

func (s *stubStore) FindPendingByAuthority(authority string) (*models.Member, error) {
	m, ok := s.pending[authority]
	if !ok {
		return nil, nil
	}
	return m, nil
}

type stubChat struct{}

func (stubChat) MemberStatus(context.Context, int64) (membership.Status, error) {
	return membership.StatusNone, nil
}
func (stubChat) Send(context.Context, int64, string) error { return nil }
func (stubChat) SendWithButton(context.Context, int64, string, string, string) error {
	return nil
}
func (stubChat) CreateInvite(context.Context, time.Time) (string, error) {
	return "https://t.me/+invite", nil
}

type stubPayments struct {
	outcome payment.Outcome
}

func (stubPayments) RequestPayment(context.Context, int64) (string, error) { return "", nil }
func (p stubPayments) VerifyPayment(context.Context, int64, string) (payment.Outcome, error) {
	return p.outcome, nil
}
func (stubPayments) PaymentURL(authority string) string { return "https://pay.example/" + authority }

type stubDeduper struct{}

func (stubDeduper) Active(context.Context, int64) (bool, error) { return false, nil }
func (stubDeduper) Mark(context.Context, int64) error           { return nil }

func callbackRequest(t *testing.T, h *PaymentCallbackHandler, query string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/payment/zarinpal/callback"+query, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.ZarinPalCallback(e.NewContext(req, rec)))
	return rec
}

func newCallbackHandler(store *stubStore, outcome payment.Outcome) *PaymentCallbackHandler {
	svc := membership.NewService(store, stubChat{}, stubPayments{outcome: outcome}, stubDeduper{}, 50000, zap.NewNop())
	return NewPaymentCallbackHandler(svc, zap.NewNop())
}

func TestZarinPalCallback_Verified(t *testing.T) {
	store := &stubStore{pending: map[string]*models.Member{
		"A1": {UserID: 42, PaymentStatus: models.PaymentPending, Authority: "A1"},
	}}
	h := newCallbackHandler(store, payment.OutcomeConfirmed)

	rec := callbackRequest(t, h, "?Authority=A1&Status=OK")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Payment verified", rec.Body.String())
}

func TestZarinPalCallback_VerificationFailed(t *testing.T) {
	store := &stubStore{pending: map[string]*models.Member{
		"A1": {UserID: 42, PaymentStatus: models.PaymentPending, Authority: "A1"},
	}}
	h := newCallbackHandler(store, payment.OutcomeRejected)

	rec := callbackRequest(t, h, "?Authority=A1&Status=OK")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Payment verification failed", rec.Body.String())
}

func TestZarinPalCallback_GatewayNOK(t *testing.T) {
	store := &stubStore{pending: map[string]*models.Member{
		"A1": {UserID: 42, PaymentStatus: models.PaymentPending, Authority: "A1"},
	}}
	h := newCallbackHandler(store, payment.OutcomeConfirmed)

	rec := callbackRequest(t, h, "?Authority=A1&Status=NOK")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Payment verification failed", rec.Body.String())
}

func TestZarinPalCallback_UnknownAuthority(t *testing.T) {
	h := newCallbackHandler(&stubStore{pending: map[string]*models.Member{}}, payment.OutcomeConfirmed)

	rec := callbackRequest(t, h, "?Authority=A9&Status=OK")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "No pending payment found for this authority", rec.Body.String())
}

func TestZarinPalCallback_MissingParameters(t *testing.T) {
	h := newCallbackHandler(&stubStore{pending: map[string]*models.Member{}}, payment.OutcomeConfirmed)

	for _, query := range []string{"", "?Authority=A1", "?Status=OK"} {
		rec := callbackRequest(t, h, query)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Invalid callback parameters", rec.Body.String())
	}
}
