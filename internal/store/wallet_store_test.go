package store

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/courseloop/platform_be/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// One connection serializes writers, which in-memory SQLite needs.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Wallet{}, &models.WalletTransaction{}))
	return db
}

// fakeClock hands out strictly increasing timestamps so newest-first
// ordering is deterministic.
func fakeClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func TestCreateAndFind(t *testing.T) {
	s := NewWalletStore(newTestDB(t))
	ownerID := uuid.New()

	_, err := s.Find(ownerID, models.OwnerStudent)
	assert.ErrorIs(t, err, ErrWalletNotFound)

	w, err := s.Create(ownerID, models.OwnerStudent, models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, int64(0), w.Balance)
	assert.Equal(t, models.RoleStudent, w.Role)

	found, err := s.Find(ownerID, models.OwnerStudent)
	require.NoError(t, err)
	assert.Equal(t, w.ID, found.ID)

	_, err = s.Create(ownerID, models.OwnerStudent, models.RoleStudent)
	assert.ErrorIs(t, err, ErrWalletExists)

	// Same owner id under a different kind is a different wallet.
	_, err = s.Create(ownerID, models.OwnerInstructor, models.RoleInstructor)
	require.NoError(t, err)
}

func TestApplyDeltaCreditAndDebit(t *testing.T) {
	s := NewWalletStore(newTestDB(t))
	ownerID := uuid.New()
	_, err := s.Create(ownerID, models.OwnerInstructor, models.RoleInstructor)
	require.NoError(t, err)

	w, err := s.ApplyDelta(ownerID, models.OwnerInstructor, 500, "course sale", "ref-1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), w.Balance)

	w, err = s.ApplyDelta(ownerID, models.OwnerInstructor, -200, "payout", "ref-2")
	require.NoError(t, err)
	assert.Equal(t, int64(300), w.Balance)

	records, total, err := s.ListTransactions(ownerID, models.OwnerInstructor, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	// Ledger rows carry positive magnitudes; the sign lives in the type.
	var signed int64
	for _, r := range records {
		assert.Greater(t, r.Amount, int64(0))
		if r.Type == models.WalletTrxCredit {
			signed += r.Amount
		} else {
			signed -= r.Amount
		}
	}
	assert.Equal(t, w.Balance, signed)
}

func TestApplyDeltaOverdraftRejectedWhole(t *testing.T) {
	s := NewWalletStore(newTestDB(t))
	ownerID := uuid.New()
	_, err := s.Create(ownerID, models.OwnerStudent, models.RoleStudent)
	require.NoError(t, err)

	_, err = s.ApplyDelta(ownerID, models.OwnerStudent, 100, "recharge", "ref-1")
	require.NoError(t, err)

	_, err = s.ApplyDelta(ownerID, models.OwnerStudent, -150, "purchase", "ref-2")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// Nothing partially applied: balance untouched, no ledger row written.
	w, err := s.Find(ownerID, models.OwnerStudent)
	require.NoError(t, err)
	assert.Equal(t, int64(100), w.Balance)

	_, total, err := s.ListTransactions(ownerID, models.OwnerStudent, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestApplyDeltaMissingWallet(t *testing.T) {
	s := NewWalletStore(newTestDB(t))

	_, err := s.ApplyDelta(uuid.New(), models.OwnerAdmin, 100, "x", "ref")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestListTransactionsNewestFirstPaged(t *testing.T) {
	s := NewWalletStore(newTestDB(t))
	s.Now = fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ownerID := uuid.New()
	_, err := s.Create(ownerID, models.OwnerStudent, models.RoleStudent)
	require.NoError(t, err)

	descriptions := []string{"first", "second", "third", "fourth", "fifth"}
	for _, d := range descriptions {
		_, err := s.ApplyDelta(ownerID, models.OwnerStudent, 10, d, uuid.NewString())
		require.NoError(t, err)
	}

	page1, total, err := s.ListTransactions(ownerID, models.OwnerStudent, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page1, 2)
	assert.Equal(t, "fifth", page1[0].Description)
	assert.Equal(t, "fourth", page1[1].Description)

	page3, _, err := s.ListTransactions(ownerID, models.OwnerStudent, 3, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "first", page3[0].Description)
}

func TestListTransactionsStableWhenTimestampsCollide(t *testing.T) {
	s := NewWalletStore(newTestDB(t))
	stamp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return stamp }

	ownerID := uuid.New()
	_, err := s.Create(ownerID, models.OwnerStudent, models.RoleStudent)
	require.NoError(t, err)

	// All five entries share one created_at, so paging has to fall back
	// to the id tiebreaker to avoid duplicating or skipping rows.
	for i := 0; i < 5; i++ {
		_, err := s.ApplyDelta(ownerID, models.OwnerStudent, 10, "topup", uuid.NewString())
		require.NoError(t, err)
	}

	seen := make(map[uuid.UUID]int)
	for page := 1; page <= 3; page++ {
		records, total, err := s.ListTransactions(ownerID, models.OwnerStudent, page, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		for _, r := range records {
			seen[r.ID]++
		}
	}

	assert.Len(t, seen, 5)
	for id, count := range seen {
		assert.Equalf(t, 1, count, "transaction %s appeared %d times across pages", id, count)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	s := NewWalletStore(newTestDB(t))
	ownerID := uuid.New()
	_, err := s.Create(ownerID, models.OwnerInstructor, models.RoleInstructor)
	require.NoError(t, err)
	_, err = s.ApplyDelta(ownerID, models.OwnerInstructor, 1000, "seed", "seed")
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ApplyDelta(ownerID, models.OwnerInstructor, -100, "drain", uuid.NewString())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientBalance):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// 1000 covers exactly ten 100-debits; the other ten must be rejected.
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 10, rejected)

	w, err := s.Find(ownerID, models.OwnerInstructor)
	require.NoError(t, err)
	assert.Equal(t, int64(0), w.Balance)
}

func TestRandomizedConcurrentTrafficKeepsInvariant(t *testing.T) {
	s := NewWalletStore(newTestDB(t))
	ownerID := uuid.New()
	_, err := s.Create(ownerID, models.OwnerStudent, models.RoleStudent)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	type op struct {
		delta int64
	}
	ops := make([]op, 200)
	for i := range ops {
		amount := int64(rng.Intn(50) + 1)
		if rng.Intn(2) == 0 {
			amount = -amount
		}
		ops[i] = op{delta: amount}
	}

	var wg sync.WaitGroup
	for _, o := range ops {
		wg.Add(1)
		go func(delta int64) {
			defer wg.Done()
			_, err := s.ApplyDelta(ownerID, models.OwnerStudent, delta, "fuzz", uuid.NewString())
			if err != nil && !errors.Is(err, ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
			}
		}(o.delta)
	}
	wg.Wait()

	w, err := s.Find(ownerID, models.OwnerStudent)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, w.Balance, int64(0))

	// The signed ledger sum must equal the balance exactly.
	var records []models.WalletTransaction
	require.NoError(t, s.DB.Find(&records, "wallet_id = ?", w.ID).Error)
	var signed int64
	for _, r := range records {
		if r.Type == models.WalletTrxCredit {
			signed += r.Amount
		} else {
			signed -= r.Amount
		}
	}
	assert.Equal(t, w.Balance, signed)
}
