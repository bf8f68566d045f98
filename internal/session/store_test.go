package session

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saaspulse/pkg/contracts/domain"
)

func testRecords() []domain.FinancialPeriodRecord {
	return []domain.FinancialPeriodRecord{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Revenue: 50000},
	}
}

func newTestStore(ttl time.Duration) *Store {
	return NewStore(ttl, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
}

func TestStorePutAndGet(t *testing.T) {
	store := newTestStore(time.Hour)
	id := NewSessionID()

	store.PutRecords(id, testRecords())

	got, err := store.Records(id)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.InDelta(t, 50000, got[0].Revenue, 1e-9)
}

func TestStoreUnknownSession(t *testing.T) {
	store := newTestStore(time.Hour)

	_, err := store.Records("nope")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestStoreReplaceOnNewUpload(t *testing.T) {
	store := newTestStore(time.Hour)
	id := NewSessionID()

	store.PutRecords(id, testRecords())

	replacement := []domain.FinancialPeriodRecord{
		{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Revenue: 60000},
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Revenue: 70000},
	}
	store.PutRecords(id, replacement)

	got, err := store.Records(id)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.InDelta(t, 60000, got[0].Revenue, 1e-9)
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(time.Hour)
	id := NewSessionID()

	store.PutRecords(id, testRecords())
	store.Delete(id)

	_, err := store.Records(id)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Zero(t, store.Count())
}

func TestStoreTTLExpiry(t *testing.T) {
	store := newTestStore(10 * time.Millisecond)
	id := NewSessionID()

	store.PutRecords(id, testRecords())
	time.Sleep(25 * time.Millisecond)

	_, err := store.Records(id)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestStoreJanitorEvicts(t *testing.T) {
	store := newTestStore(10 * time.Millisecond)
	defer store.Stop()

	store.PutRecords(NewSessionID(), testRecords())
	store.PutRecords(NewSessionID(), testRecords())
	require.Equal(t, 2, store.Count())

	go store.StartJanitor(5 * time.Millisecond)

	assert.Eventually(t, func() bool {
		return store.Count() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestStoreCount(t *testing.T) {
	store := newTestStore(time.Hour)
	assert.Zero(t, store.Count())

	store.PutRecords(NewSessionID(), testRecords())
	store.PutRecords(NewSessionID(), testRecords())
	assert.Equal(t, 2, store.Count())
}
