package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/models"
)

// MemberRepository handles all member database operations.
type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// FindByID finds a member by Telegram user ID. Returns (nil, nil) when the
// user has no record yet.
func (r *MemberRepository) FindByID(userID int64) (*models.Member, error) {
	var member models.Member
	if err := r.db.Where("user_id = ?", userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// Create inserts a new member record.
func (r *MemberRepository) Create(member *models.Member) error {
	return r.db.Create(member).Error
}

// Upsert inserts the member, or when a row for the user already exists,
// merges only the named columns into it. The whole call is one statement.
func (r *MemberRepository) Upsert(member *models.Member, columns ...string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(member).Error
}

// Update updates member fields atomically.
func (r *MemberRepository) Update(userID int64, updates map[string]interface{}) error {
	return r.db.Model(&models.Member{}).Where("user_id = ?", userID).Updates(updates).Error
}

// FindPendingByAuthority finds the member whose live payment attempt carries
// the given gateway authority. Returns (nil, nil) when no attempt is pending,
// which is how stale or duplicate callbacks are recognized.
func (r *MemberRepository) FindPendingByAuthority(authority string) (*models.Member, error) {
	var member models.Member
	err := r.db.Where("authority = ? AND payment_status = ?", authority, models.PaymentPending).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// ClaimPending flips the member's payment status from pending to success,
// but only if it is still pending. Reports whether this caller won the
// transition, so concurrent callback deliveries resolve to a single winner.
func (r *MemberRepository) ClaimPending(userID int64) (bool, error) {
	res := r.db.Model(&models.Member{}).
		Where("user_id = ? AND payment_status = ?", userID, models.PaymentPending).
		Update("payment_status", models.PaymentSuccess)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkPendingFailed flips the member's payment status from pending to
// failed, but only while it is still pending. A record whose payment was
// concurrently claimed as successful is left alone.
func (r *MemberRepository) MarkPendingFailed(userID int64) error {
	return r.db.Model(&models.Member{}).
		Where("user_id = ? AND payment_status = ?", userID, models.PaymentPending).
		Update("payment_status", models.PaymentFailed).Error
}

// Exists checks whether a member record exists for the user.
func (r *MemberRepository) Exists(userID int64) (bool, error) {
	var count int64
	err := r.db.Model(&models.Member{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}
