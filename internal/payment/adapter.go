package payment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/models"
)

// MemberStore is the slice of the persistence layer the adapter writes to.
type MemberStore interface {
	Upsert(member *models.Member, columns ...string) error
	Update(userID int64, updates map[string]interface{}) error
	ClaimPending(userID int64) (bool, error)
}

// Adapter binds a Gateway to the member store. It owns the persistence of
// payment lifecycle transitions; user-facing side effects stay with the
// caller. The amount is the fixed configured price for every request and
// verification, never a callback-supplied value.
type Adapter struct {
	gateway     Gateway
	store       MemberStore
	amount      int
	callbackURL string
	logger      *zap.Logger
}

func NewAdapter(gateway Gateway, store MemberStore, amount int, callbackURL string, logger *zap.Logger) *Adapter {
	return &Adapter{
		gateway:     gateway,
		store:       store,
		amount:      amount,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// PaymentURL rebuilds the hosted payment-page URL for a stored authority.
func (a *Adapter) PaymentURL(authority string) string {
	return a.gateway.PaymentURL(authority)
}

// RequestPayment asks the gateway for a hosted payment page and records the
// attempt as pending. On any gateway failure the store is left untouched and
// the caller must fall back to a generic retry-later message.
func (a *Adapter) RequestPayment(ctx context.Context, userID int64) (string, error) {
	description := fmt.Sprintf("Payment for channel membership - User %d", userID)

	result, err := a.gateway.CreatePayment(ctx, a.amount, description, a.callbackURL)
	if err != nil {
		return "", fmt.Errorf("create payment for user %d: %w", userID, err)
	}

	member := &models.Member{
		UserID:        userID,
		PaymentStatus: models.PaymentPending,
		Authority:     result.Authority,
	}
	if err := a.store.Upsert(member, "payment_status", "authority"); err != nil {
		return "", fmt.Errorf("record pending payment for user %d: %w", userID, err)
	}

	a.logger.Info("payment link issued",
		zap.Int64("user_id", userID),
		zap.String("authority", result.Authority))
	return result.PaymentURL, nil
}

// VerifyPayment verifies the attempt with the gateway and persists the
// resulting status. A confirmed payment claims the pending record so that
// exactly one caller sees OutcomeConfirmed; a rejection marks the attempt
// failed. A gateway error persists nothing, the attempt stays pending.
func (a *Adapter) VerifyPayment(ctx context.Context, userID int64, authority string) (Outcome, error) {
	result, err := a.gateway.VerifyPayment(ctx, authority, a.amount)
	if err != nil {
		// A transport failure is not a rejection. The record stays pending
		// so a re-delivered callback can still verify the attempt.
		return OutcomeRejected, fmt.Errorf("verify payment for user %d: %w", userID, err)
	}

	if !result.Verified {
		// The gateway message is logged, never shown to the end user.
		a.logger.Warn("payment verification rejected",
			zap.Int64("user_id", userID),
			zap.String("authority", authority),
			zap.String("gateway_message", result.Message))
		if err := a.store.Update(userID, map[string]interface{}{"payment_status": models.PaymentFailed}); err != nil {
			return OutcomeRejected, fmt.Errorf("record failed payment for user %d: %w", userID, err)
		}
		return OutcomeRejected, nil
	}

	won, err := a.store.ClaimPending(userID)
	if err != nil {
		return OutcomeRejected, fmt.Errorf("claim pending payment for user %d: %w", userID, err)
	}
	if !won {
		return OutcomeDuplicate, nil
	}

	a.logger.Info("payment verified",
		zap.Int64("user_id", userID),
		zap.String("authority", authority),
		zap.String("ref_id", result.RefID))
	return OutcomeConfirmed, nil
}
