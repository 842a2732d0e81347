package membership

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/models"
	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/payment"
)

// Status is the platform-reported membership state of a user.
type Status int

const (
	StatusNone Status = iota
	StatusMember
	StatusAdmin
	StatusOwner
)

// Active reports whether the user currently belongs to the channel.
func (s Status) Active() bool {
	return s != StatusNone
}

// CallbackOutcome is what the HTTP layer answers the gateway with.
type CallbackOutcome int

const (
	CallbackVerified CallbackOutcome = iota
	CallbackFailed
	CallbackUnknownAuthority
)

// Store is the persistence surface the state machine reads and writes.
type Store interface {
	FindByID(userID int64) (*models.Member, error)
	Create(member *models.Member) error
	Update(userID int64, updates map[string]interface{}) error
	// MarkPendingFailed fails the attempt only while it is still pending.
	MarkPendingFailed(userID int64) error
	FindPendingByAuthority(authority string) (*models.Member, error)
}

// Chat is the messaging-platform collaborator.
type Chat interface {
	MemberStatus(ctx context.Context, userID int64) (Status, error)
	Send(ctx context.Context, userID int64, text string) error
	SendWithButton(ctx context.Context, userID int64, text, label, url string) error
	// CreateInvite mints a single-use invite link valid until expireAt.
	CreateInvite(ctx context.Context, expireAt time.Time) (string, error)
}

// Payments is the gateway adapter surface.
type Payments interface {
	RequestPayment(ctx context.Context, userID int64) (string, error)
	VerifyPayment(ctx context.Context, userID int64, authority string) (payment.Outcome, error)
	PaymentURL(authority string) string
}

const (
	membershipDays = 30
	inviteValidity = 24 * time.Hour

	msgMembershipInfo   = "You joined the channel on %s and your membership expires in %d days."
	msgPreviousInvite   = "You are not a member of the channel. Here's your previous one-time invite link:"
	msgNewInvite        = "You are not a member of the channel. Here's a one-time invite link:"
	msgPayPrompt        = "Please complete your payment of %d Tomans to join the channel:"
	msgPaymentLinkError = "Error generating payment link. Please try again later."
	msgPaymentSuccess   = "Payment successful! Click the button below to join the channel:"
	msgPaymentFailed    = "Payment failed. Please try again."
)

// defaultJoinDate is the fixed historical join date recorded for members
// first seen via a chat message rather than the startup sync.
var defaultJoinDate = time.Date(2025, time.January, 23, 0, 0, 0, 0, time.UTC)

// Service is the membership state machine. Both inbound chat messages and
// gateway callbacks funnel into it; it decides what to tell the user and
// which records to mutate.
type Service struct {
	store    Store
	chat     Chat
	payments Payments
	dedup    AttemptDeduper
	price    int
	logger   *zap.Logger
}

func NewService(store Store, chat Chat, payments Payments, dedup AttemptDeduper, price int, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		chat:     chat,
		payments: payments,
		dedup:    dedup,
		price:    price,
		logger:   logger,
	}
}

// OnUserMessage handles one inbound chat message from the user.
func (s *Service) OnUserMessage(ctx context.Context, userID int64) error {
	status, err := s.chat.MemberStatus(ctx, userID)
	if err != nil {
		// The platform reports "no relation to the group" as an error.
		// Policy: any status failure reads as not-a-member.
		s.logger.Info("member status lookup failed, treating as non-member",
			zap.Int64("user_id", userID), zap.Error(err))
		status = StatusNone
	}

	if status.Active() {
		return s.handleActiveMember(ctx, userID, status)
	}
	return s.handleNonMember(ctx, userID)
}

func (s *Service) handleActiveMember(ctx context.Context, userID int64, status Status) error {
	member, err := s.store.FindByID(userID)
	if err != nil {
		return fmt.Errorf("load member %d: %w", userID, err)
	}

	if member == nil {
		join := defaultJoinDate
		days := 0
		member = &models.Member{
			UserID:        userID,
			JoinDate:      &join,
			IsAdmin:       status == StatusAdmin || status == StatusOwner,
			DaysRemaining: &days,
		}
		if err := s.store.Create(member); err != nil {
			return fmt.Errorf("create member %d: %w", userID, err)
		}
		s.logger.Info("new active member recorded", zap.Int64("user_id", userID))
		return s.chat.Send(ctx, userID,
			fmt.Sprintf(msgMembershipInfo, join.Format("2006-01-02"), days))
	}

	join := time.Now()
	if member.JoinDate != nil {
		join = *member.JoinDate
	}

	var days int
	if member.DaysRemaining == nil {
		// One-time snapshot. It is never recomputed afterwards.
		days = daysUntil(join.AddDate(0, 0, membershipDays), time.Now())
		if days < 0 {
			days = 0
		}
		if err := s.store.Update(userID, map[string]interface{}{"days_remaining": days}); err != nil {
			return fmt.Errorf("store days remaining for member %d: %w", userID, err)
		}
	} else {
		days = *member.DaysRemaining
	}

	return s.chat.Send(ctx, userID,
		fmt.Sprintf(msgMembershipInfo, join.Format("2006-01-02"), days))
}

func (s *Service) handleNonMember(ctx context.Context, userID int64) error {
	member, err := s.store.FindByID(userID)
	if err != nil {
		return fmt.Errorf("load member %d: %w", userID, err)
	}

	if member != nil && member.PaymentStatus == models.PaymentSuccess {
		if member.InviteValid(time.Now().Unix()) {
			// Idempotent re-delivery; never mint while the old link is live.
			return s.chat.SendWithButton(ctx, userID, msgPreviousInvite, "Join Channel", member.InviteLink)
		}

		link, err := s.mintInvite(ctx, userID)
		if err != nil {
			s.logger.Error("failed to mint invite", zap.Int64("user_id", userID), zap.Error(err))
			return s.chat.Send(ctx, userID, msgPaymentLinkError)
		}
		return s.chat.SendWithButton(ctx, userID, msgNewInvite, "Join Channel", link)
	}

	// A pending attempt still in flight gets its existing payment page back
	// instead of a fresh gateway request.
	if member != nil && member.PaymentStatus == models.PaymentPending && member.Authority != "" {
		if active, err := s.dedup.Active(ctx, userID); err == nil && active {
			return s.chat.SendWithButton(ctx, userID,
				fmt.Sprintf(msgPayPrompt, s.price), "Pay Now", s.payments.PaymentURL(member.Authority))
		}
	}

	url, err := s.payments.RequestPayment(ctx, userID)
	if err != nil {
		s.logger.Error("payment request failed", zap.Int64("user_id", userID), zap.Error(err))
		return s.chat.Send(ctx, userID, msgPaymentLinkError)
	}
	if err := s.dedup.Mark(ctx, userID); err != nil {
		s.logger.Warn("failed to mark payment attempt", zap.Int64("user_id", userID), zap.Error(err))
	}

	return s.chat.SendWithButton(ctx, userID, fmt.Sprintf(msgPayPrompt, s.price), "Pay Now", url)
}

// OnPaymentCallback drives the payment-confirmed transition for one gateway
// callback. gatewayOK is the gateway's own status flag from the callback URL.
func (s *Service) OnPaymentCallback(ctx context.Context, authority string, gatewayOK bool) CallbackOutcome {
	member, err := s.store.FindPendingByAuthority(authority)
	if err != nil {
		s.logger.Error("pending payment lookup failed", zap.String("authority", authority), zap.Error(err))
		return CallbackFailed
	}
	if member == nil {
		// Unknown or already-resolved authority: a stale or duplicate
		// delivery, not a gateway error. No record is touched.
		s.logger.Info("callback for unknown authority", zap.String("authority", authority))
		return CallbackUnknownAuthority
	}

	if !gatewayOK {
		// Conditional on still-pending: a concurrent delivery may have
		// claimed the attempt as successful between lookup and here.
		if err := s.store.MarkPendingFailed(member.UserID); err != nil {
			s.logger.Error("failed to mark payment failed", zap.Int64("user_id", member.UserID), zap.Error(err))
		}
		s.notifyFailure(ctx, member.UserID)
		return CallbackFailed
	}

	outcome, err := s.payments.VerifyPayment(ctx, member.UserID, authority)
	if err != nil {
		s.logger.Error("payment verification failed", zap.Int64("user_id", member.UserID), zap.Error(err))
		s.notifyFailure(ctx, member.UserID)
		return CallbackFailed
	}

	switch outcome {
	case payment.OutcomeConfirmed:
		link, err := s.mintInvite(ctx, member.UserID)
		if err != nil {
			// The payment stands; the user gets a fresh invite on their
			// next message via the stale-invite branch.
			s.logger.Error("failed to mint invite after payment", zap.Int64("user_id", member.UserID), zap.Error(err))
			return CallbackVerified
		}
		if err := s.chat.SendWithButton(ctx, member.UserID, msgPaymentSuccess, "Join Channel", link); err != nil {
			s.logger.Error("failed to deliver invite", zap.Int64("user_id", member.UserID), zap.Error(err))
		}
		return CallbackVerified
	case payment.OutcomeDuplicate:
		return CallbackVerified
	default:
		s.notifyFailure(ctx, member.UserID)
		return CallbackFailed
	}
}

// mintInvite creates a 24-hour single-use invite and persists it, replacing
// whatever link the record held before.
func (s *Service) mintInvite(ctx context.Context, userID int64) (string, error) {
	expireAt := time.Now().Add(inviteValidity)
	link, err := s.chat.CreateInvite(ctx, expireAt)
	if err != nil {
		return "", fmt.Errorf("create invite link: %w", err)
	}
	err = s.store.Update(userID, map[string]interface{}{
		"invite_link":   link,
		"invite_expiry": expireAt.Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("store invite link: %w", err)
	}
	s.logger.Info("invite link issued",
		zap.Int64("user_id", userID), zap.Int64("expiry", expireAt.Unix()))
	return link, nil
}

func (s *Service) notifyFailure(ctx context.Context, userID int64) {
	if err := s.chat.Send(ctx, userID, msgPaymentFailed); err != nil {
		s.logger.Error("failed to send failure notice", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// daysUntil counts whole calendar days from `from` to `t`, ignoring the
// time-of-day component of both.
func daysUntil(t, from time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
