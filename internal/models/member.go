package models

import "time"

// Payment lifecycle values for Member.PaymentStatus.
const (
	PaymentNone    = ""
	PaymentPending = "pending"
	PaymentSuccess = "success"
	PaymentFailed  = "failed"
)

// Member maps to the `members` table.
// Primary key is the Telegram user ID. One row per known user; rows are
// created lazily and never deleted.
type Member struct {
	UserID          int64      `gorm:"column:user_id;primaryKey" json:"user_id"`
	JoinDate        *time.Time `gorm:"column:join_date" json:"join_date"`
	IsAdmin         bool       `gorm:"column:is_admin;default:false" json:"is_admin"`
	LastPaymentDate *time.Time `gorm:"column:last_payment_date" json:"last_payment_date"`
	DaysRemaining   *int       `gorm:"column:days_remaining" json:"days_remaining"`
	InviteLink      string     `gorm:"column:invite_link;size:500" json:"invite_link"`
	InviteExpiry    int64      `gorm:"column:invite_expiry;default:0" json:"invite_expiry"`
	PaymentStatus   string     `gorm:"column:payment_status;size:20" json:"payment_status"`
	Authority       string     `gorm:"column:authority;size:100;index" json:"authority"`
}

func (Member) TableName() string {
	return "members"
}

// InviteValid reports whether the stored one-time invite is still usable at
// the given instant. An expired link stays in the row but must not be reused.
func (m *Member) InviteValid(now int64) bool {
	return m.InviteLink != "" && m.InviteExpiry > now
}
