package bot

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/models"
)

const (
	// Seeded members get a backdated join date and a full countdown.
	seedBackdateDays  = 50
	seedDaysRemaining = 30
)

// SyncChannelMembers seeds the store once at startup: every channel
// administrator, plus the operator-supplied set of known user IDs, gets a
// record with a backdated join date. Existing records are left alone.
func (b *Bot) SyncChannelMembers() error {
	admins, err := b.tb.AdminsOf(&tele.Chat{ID: b.cfg.Bot.ChannelID})
	if err != nil {
		return fmt.Errorf("list channel administrators: %w", err)
	}
	b.logger.Info("syncing channel members", zap.Int("admins", len(admins)))

	joinDate := time.Now().AddDate(0, 0, -seedBackdateDays)
	adminIDs := make(map[int64]bool, len(admins))

	for _, admin := range admins {
		if admin.User == nil {
			continue
		}
		adminIDs[admin.User.ID] = true
		if err := b.seedMember(admin.User.ID, joinDate, true); err != nil {
			b.logger.Error("failed to seed admin", zap.Int64("user_id", admin.User.ID), zap.Error(err))
		}
	}

	for _, userID := range b.cfg.Bot.KnownUserIDs {
		if adminIDs[userID] {
			continue
		}
		if err := b.seedMember(userID, joinDate, false); err != nil {
			b.logger.Error("failed to seed known user", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	b.logger.Info("channel members synced")
	return nil
}

func (b *Bot) seedMember(userID int64, joinDate time.Time, isAdmin bool) error {
	exists, err := b.repo.Exists(userID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	days := seedDaysRemaining
	member := &models.Member{
		UserID:        userID,
		JoinDate:      &joinDate,
		IsAdmin:       isAdmin,
		DaysRemaining: &days,
	}
	if err := b.repo.Create(member); err != nil {
		return err
	}
	b.logger.Info("seeded member",
		zap.Int64("user_id", userID),
		zap.Bool("is_admin", isAdmin),
		zap.Time("join_date", joinDate))
	return nil
}
