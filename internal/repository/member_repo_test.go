package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/bootstrap"
	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/models"
)

func newTestRepo(t *testing.T) *MemberRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "members.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, bootstrap.Migrate(db))
	return NewMemberRepository(db)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "members.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, bootstrap.Migrate(db))

	repo := NewMemberRepository(db)
	join := time.Date(2025, 1, 23, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(&models.Member{UserID: 42, JoinDate: &join}))

	// Extending the schema again must neither error nor destroy rows.
	require.NoError(t, bootstrap.Migrate(db))

	m, err := repo.FindByID(42)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, join.Format("2006-01-02"), m.JoinDate.Format("2006-01-02"))
}

func TestFindByID_MissingRecord(t *testing.T) {
	repo := newTestRepo(t)

	m, err := repo.FindByID(42)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestUpsert_InsertsThenMergesOnlyNamedColumns(t *testing.T) {
	repo := newTestRepo(t)

	join := time.Date(2025, 1, 23, 0, 0, 0, 0, time.UTC)
	days := 30
	require.NoError(t, repo.Create(&models.Member{
		UserID:        42,
		JoinDate:      &join,
		IsAdmin:       true,
		DaysRemaining: &days,
	}))

	// Merge only the payment columns into the existing row.
	require.NoError(t, repo.Upsert(&models.Member{
		UserID:        42,
		PaymentStatus: models.PaymentPending,
		Authority:     "A1",
	}, "payment_status", "authority"))

	m, err := repo.FindByID(42)
	require.NoError(t, err)
	require.Equal(t, models.PaymentPending, m.PaymentStatus)
	require.Equal(t, "A1", m.Authority)
	require.True(t, m.IsAdmin, "untouched columns must survive the merge")
	require.NotNil(t, m.JoinDate)
	require.NotNil(t, m.DaysRemaining)
	require.Equal(t, 30, *m.DaysRemaining)

	// Upsert against an absent row inserts it.
	require.NoError(t, repo.Upsert(&models.Member{
		UserID:        43,
		PaymentStatus: models.PaymentPending,
		Authority:     "A2",
	}, "payment_status", "authority"))

	m, err = repo.FindByID(43)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "A2", m.Authority)
}

func TestUpdate(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Create(&models.Member{UserID: 42}))

	expiry := time.Now().Add(24 * time.Hour).Unix()
	require.NoError(t, repo.Update(42, map[string]interface{}{
		"invite_link":   "https://t.me/+abc",
		"invite_expiry": expiry,
	}))

	m, err := repo.FindByID(42)
	require.NoError(t, err)
	require.Equal(t, "https://t.me/+abc", m.InviteLink)
	require.Equal(t, expiry, m.InviteExpiry)
}

func TestFindPendingByAuthority(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Create(&models.Member{
		UserID: 42, PaymentStatus: models.PaymentPending, Authority: "A1",
	}))
	require.NoError(t, repo.Create(&models.Member{
		UserID: 43, PaymentStatus: models.PaymentSuccess, Authority: "A2",
	}))

	m, err := repo.FindPendingByAuthority("A1")
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, int64(42), m.UserID)

	// A resolved attempt no longer matches.
	m, err = repo.FindPendingByAuthority("A2")
	require.NoError(t, err)
	require.Nil(t, m)

	m, err = repo.FindPendingByAuthority("unknown")
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestClaimPending_SingleWinner(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Create(&models.Member{
		UserID: 42, PaymentStatus: models.PaymentPending, Authority: "A1",
	}))

	won, err := repo.ClaimPending(42)
	require.NoError(t, err)
	require.True(t, won)

	m, err := repo.FindByID(42)
	require.NoError(t, err)
	require.Equal(t, models.PaymentSuccess, m.PaymentStatus)

	// The transition happens exactly once.
	won, err = repo.ClaimPending(42)
	require.NoError(t, err)
	require.False(t, won)
}

func TestClaimPending_NoPendingAttempt(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Create(&models.Member{UserID: 42, PaymentStatus: models.PaymentFailed}))

	won, err := repo.ClaimPending(42)
	require.NoError(t, err)
	require.False(t, won)
}

func TestMarkPendingFailed(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Create(&models.Member{
		UserID: 42, PaymentStatus: models.PaymentPending, Authority: "A1",
	}))

	require.NoError(t, repo.MarkPendingFailed(42))

	m, err := repo.FindByID(42)
	require.NoError(t, err)
	require.Equal(t, models.PaymentFailed, m.PaymentStatus)
}

func TestMarkPendingFailed_DoesNotOverwriteSuccess(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Create(&models.Member{
		UserID: 42, PaymentStatus: models.PaymentPending, Authority: "A1",
	}))

	won, err := repo.ClaimPending(42)
	require.NoError(t, err)
	require.True(t, won)

	// A late failure signal for the same attempt must not undo the claim.
	require.NoError(t, repo.MarkPendingFailed(42))

	m, err := repo.FindByID(42)
	require.NoError(t, err)
	require.Equal(t, models.PaymentSuccess, m.PaymentStatus)
}

func TestExists(t *testing.T) {
	repo := newTestRepo(t)

	ok, err := repo.Exists(42)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.Create(&models.Member{UserID: 42}))

	ok, err = repo.Exists(42)
	require.NoError(t, err)
	require.True(t, ok)
}
