package signals

import (
	"context"
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/tradewind/papertrader/internal/database"
	"github.com/tradewind/papertrader/internal/domain"
	"github.com/tradewind/papertrader/internal/events"
)

func newTestLifecycle(t *testing.T) *Lifecycle {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(database.Schema)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewLifecycle(NewRepository(db, log), events.NewManager(log), log)
}

func floatPtr(f float64) *float64 { return &f }

func TestCreate_QueuesValidSignal(t *testing.T) {
	lc := newTestLifecycle(t)

	sig, err := lc.Create(context.Background(), "user-1", CreateSignalRequest{
		Symbol:     " btcusdt ",
		Side:       "buy",
		Quantity:   0.5,
		Confidence: floatPtr(0.9),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, sig.ID)
	assert.Equal(t, "BTCUSDT", sig.Symbol) // trimmed and upper-cased
	assert.Equal(t, domain.SideBuy, sig.Side)
	assert.Equal(t, domain.SignalQueued, sig.Status)
	assert.Nil(t, sig.ExecutedAt)

	stored, err := lc.Repo().GetByID(context.Background(), sig.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SignalQueued, stored.Status)
	require.NotNil(t, stored.Confidence)
	assert.Equal(t, 0.9, *stored.Confidence)
}

func TestCreate_Validation(t *testing.T) {
	lc := newTestLifecycle(t)

	tests := []struct {
		name string
		req  CreateSignalRequest
	}{
		{"missing symbol", CreateSignalRequest{Side: "BUY", Quantity: 1}},
		{"bad side", CreateSignalRequest{Symbol: "BTCUSDT", Side: "HOLD", Quantity: 1}},
		{"zero quantity", CreateSignalRequest{Symbol: "BTCUSDT", Side: "BUY", Quantity: 0}},
		{"negative quantity", CreateSignalRequest{Symbol: "BTCUSDT", Side: "SELL", Quantity: -2}},
		{"negative limit price", CreateSignalRequest{Symbol: "BTCUSDT", Side: "BUY", Quantity: 1, LimitPrice: floatPtr(-5)}},
		{"zero stop loss", CreateSignalRequest{Symbol: "BTCUSDT", Side: "BUY", Quantity: 1, StopLoss: floatPtr(0)}},
		{"confidence above one", CreateSignalRequest{Symbol: "BTCUSDT", Side: "BUY", Quantity: 1, Confidence: floatPtr(1.5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lc.Create(context.Background(), "user-1", tt.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRepositoryCreate_KeepsDriverErrorDetail(t *testing.T) {
	lc := newTestLifecycle(t)

	sig, err := lc.Create(context.Background(), "user-1", CreateSignalRequest{
		Symbol: "BTCUSDT", Side: "BUY", Quantity: 1,
	})
	require.NoError(t, err)

	// A second insert with the same id trips the primary key; the wrap
	// must classify as a persistence failure without losing the driver
	// detail that distinguishes it from, say, a full disk.
	err = lc.Repo().Create(context.Background(), sig)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Contains(t, err.Error(), "UNIQUE")
}

func TestReject_RecordsReason(t *testing.T) {
	lc := newTestLifecycle(t)

	sig, err := lc.Create(context.Background(), "user-1", CreateSignalRequest{
		Symbol: "BTCUSDT", Side: "BUY", Quantity: 1,
	})
	require.NoError(t, err)

	err = lc.Reject(context.Background(), sig.ID, "no price available")
	require.NoError(t, err)

	stored, err := lc.Repo().GetByID(context.Background(), sig.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SignalRejected, stored.Status)
	assert.Equal(t, "no price available", stored.Reason)
}

func TestCancel_IsTerminal(t *testing.T) {
	lc := newTestLifecycle(t)

	sig, err := lc.Create(context.Background(), "user-1", CreateSignalRequest{
		Symbol: "BTCUSDT", Side: "SELL", Quantity: 1,
	})
	require.NoError(t, err)

	require.NoError(t, lc.Cancel(context.Background(), sig.ID))

	stored, err := lc.Repo().GetByID(context.Background(), sig.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SignalCancelled, stored.Status)
	assert.True(t, stored.Status.Terminal())

	// Terminal signals admit no further transitions
	assert.ErrorIs(t, lc.Cancel(context.Background(), sig.ID), domain.ErrInvalidState)
	assert.ErrorIs(t, lc.Reject(context.Background(), sig.ID, "late"), domain.ErrInvalidState)
	assert.ErrorIs(t, lc.EnsureExecutable(stored), domain.ErrInvalidState)
}

func TestListByUser_StatusFilter(t *testing.T) {
	lc := newTestLifecycle(t)

	a, err := lc.Create(context.Background(), "user-1", CreateSignalRequest{Symbol: "BTCUSDT", Side: "BUY", Quantity: 1})
	require.NoError(t, err)
	b, err := lc.Create(context.Background(), "user-1", CreateSignalRequest{Symbol: "ETHUSDT", Side: "SELL", Quantity: 2})
	require.NoError(t, err)
	_, err = lc.Create(context.Background(), "user-2", CreateSignalRequest{Symbol: "BTCUSDT", Side: "BUY", Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, lc.Cancel(context.Background(), b.ID))

	all, err := lc.Repo().ListByUser(context.Background(), "user-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	queued, err := lc.Repo().ListByUser(context.Background(), "user-1", "queued")
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, a.ID, queued[0].ID)
}
