package execution

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/tradewind/papertrader/internal/database"
	"github.com/tradewind/papertrader/internal/domain"
	"github.com/tradewind/papertrader/internal/events"
	"github.com/tradewind/papertrader/internal/modules/positions"
	"github.com/tradewind/papertrader/internal/modules/signals"
)

type fakeOracle struct {
	price float64
	err   error
}

func (f *fakeOracle) GetCurrentPrice(_ context.Context, _ string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.price, nil
}

func newTestService(t *testing.T, oracle *fakeOracle) (*Service, *signals.Lifecycle, *positions.Repository, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	svc, lifecycle, positionRepo := buildService(t, db, oracle)
	return svc, lifecycle, positionRepo, db
}

// newFileBackedService opens a real database file so that multiple
// connections see the same data, which the concurrency tests need.
func newFileBackedService(t *testing.T, oracle *fakeOracle) (*Service, *signals.Lifecycle, *positions.Repository) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "execution_test.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc, lifecycle, positionRepo := buildService(t, db, oracle)
	return svc, lifecycle, positionRepo
}

func buildService(t *testing.T, db *sql.DB, oracle *fakeOracle) (*Service, *signals.Lifecycle, *positions.Repository) {
	t.Helper()

	_, err := db.Exec(database.Schema)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	ev := events.NewManager(log)

	signalRepo := signals.NewRepository(db, log)
	positionRepo := positions.NewRepository(db, log)
	lifecycle := signals.NewLifecycle(signalRepo, ev, log)
	sim := NewSimulator(0.001)

	return NewService(db, lifecycle, positionRepo, oracle, sim, ev, log), lifecycle, positionRepo
}

func queueSignal(t *testing.T, lifecycle *signals.Lifecycle, req signals.CreateSignalRequest) *signals.Signal {
	t.Helper()
	sig, err := lifecycle.Create(context.Background(), "user-1", req)
	require.NoError(t, err)
	return sig
}

func TestExecuteSignal_EndToEnd(t *testing.T) {
	svc, lifecycle, _, _ := newTestService(t, &fakeOracle{price: 50000})

	sig := queueSignal(t, lifecycle, signals.CreateSignalRequest{
		Symbol:   "BTCUSDT",
		Side:     "BUY",
		Quantity: 0.001,
	})

	resp, err := svc.ExecuteSignal(context.Background(), "user-1", sig.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.SignalExecuted, resp.Signal.Status)
	assert.NotNil(t, resp.Signal.ExecutedAt)
	assert.Equal(t, domain.SideLong, resp.Position.Side)
	assert.Equal(t, domain.PositionOpen, resp.Position.Status)
	assert.InDelta(t, 50050.00, resp.Position.EntryPrice, 1e-9)
	assert.Equal(t, sig.ID, resp.Position.SignalID)
}

func TestExecuteSignal_AtMostOnce(t *testing.T) {
	svc, lifecycle, posRepo, _ := newTestService(t, &fakeOracle{price: 50000})

	sig := queueSignal(t, lifecycle, signals.CreateSignalRequest{
		Symbol:   "BTCUSDT",
		Side:     "BUY",
		Quantity: 1,
	})

	_, err := svc.ExecuteSignal(context.Background(), "user-1", sig.ID)
	require.NoError(t, err)

	// A retried call is a no-op error, never a second execution
	_, err = svc.ExecuteSignal(context.Background(), "user-1", sig.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	open, err := posRepo.OpenByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestExecuteSignal_ConcurrentCallsExecuteOnce(t *testing.T) {
	svc, lifecycle, posRepo := newFileBackedService(t, &fakeOracle{price: 50000})

	sig := queueSignal(t, lifecycle, signals.CreateSignalRequest{
		Symbol:   "BTCUSDT",
		Side:     "BUY",
		Quantity: 1,
	})

	// Two callers race the same queued signal; the compare-and-set
	// commit point lets exactly one through.
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ExecuteSignal(context.Background(), "user-1", sig.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, lost := 0, 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		lost++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, lost)

	open, err := posRepo.OpenByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, open, 1)

	executed, err := lifecycle.Repo().GetByID(context.Background(), sig.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SignalExecuted, executed.Status)
}

func TestExecuteSignal_NoPriceRejectsSignal(t *testing.T) {
	oracle := &fakeOracle{err: fmt.Errorf("feed down: %w", domain.ErrNoPriceAvailable)}
	svc, lifecycle, _, _ := newTestService(t, oracle)

	sig := queueSignal(t, lifecycle, signals.CreateSignalRequest{
		Symbol:   "ETHUSDT",
		Side:     "SELL",
		Quantity: 2,
	})

	_, err := svc.ExecuteSignal(context.Background(), "user-1", sig.ID)
	assert.ErrorIs(t, err, domain.ErrNoPriceAvailable)

	rejected, err := lifecycle.Repo().GetByID(context.Background(), sig.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SignalRejected, rejected.Status)
	assert.Equal(t, "no price available", rejected.Reason)
}

func TestExecuteSignal_LimitPriceFallback(t *testing.T) {
	oracle := &fakeOracle{err: fmt.Errorf("feed down: %w", domain.ErrNoPriceAvailable)}
	svc, lifecycle, _, _ := newTestService(t, oracle)

	limit := 40000.0
	sig := queueSignal(t, lifecycle, signals.CreateSignalRequest{
		Symbol:     "BTCUSDT",
		Side:       "BUY",
		Quantity:   0.5,
		LimitPrice: &limit,
	})

	resp, err := svc.ExecuteSignal(context.Background(), "user-1", sig.ID)
	require.NoError(t, err)
	assert.InDelta(t, 40000*1.001, resp.Position.EntryPrice, 1e-9)
}

func TestExecuteSignal_ForeignSignalIsNotFound(t *testing.T) {
	svc, lifecycle, _, _ := newTestService(t, &fakeOracle{price: 100})

	sig := queueSignal(t, lifecycle, signals.CreateSignalRequest{
		Symbol:   "BTCUSDT",
		Side:     "BUY",
		Quantity: 1,
	})

	_, err := svc.ExecuteSignal(context.Background(), "someone-else", sig.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Ownership failures must not consume the signal
	still, err := lifecycle.Repo().GetByID(context.Background(), sig.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SignalQueued, still.Status)
}

func TestExecuteSignal_CancelledSignalIsTerminal(t *testing.T) {
	svc, lifecycle, _, _ := newTestService(t, &fakeOracle{price: 100})

	sig := queueSignal(t, lifecycle, signals.CreateSignalRequest{
		Symbol:   "BTCUSDT",
		Side:     "BUY",
		Quantity: 1,
	})

	require.NoError(t, lifecycle.Cancel(context.Background(), sig.ID))

	_, err := svc.ExecuteSignal(context.Background(), "user-1", sig.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// Terminal states never transition again
	err = lifecycle.Cancel(context.Background(), sig.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}
