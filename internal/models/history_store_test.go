package models

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func point(productID string, at time.Time, price int64) PricePoint {
	return PricePoint{ProductID: productID, ObservedAt: at, PriceMinor: price, Currency: "USD"}
}

func TestMemoryHistoryStore_AppendIdempotent(t *testing.T) {
	s := NewMemoryHistoryStore(0)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	res, err := s.Append(context.Background(), point("p1", at, 5000))
	require.NoError(t, err)
	assert.Equal(t, AppendInserted, res)

	res, err = s.Append(context.Background(), point("p1", at, 5000))
	require.NoError(t, err)
	assert.Equal(t, AppendDuplicate, res)

	got, err := s.Range(context.Background(), "p1", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemoryHistoryStore_ConflictFirstWriteWins(t *testing.T) {
	s := NewMemoryHistoryStore(0)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.Append(context.Background(), point("p1", at, 5000))
	require.NoError(t, err)

	res, err := s.Append(context.Background(), point("p1", at, 4900))
	require.NoError(t, err)
	assert.Equal(t, AppendConflict, res)

	latest, ok, err := s.Latest(context.Background(), "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(5000), latest.PriceMinor)
}

func TestMemoryHistoryStore_OutOfOrderInsert(t *testing.T) {
	s := NewMemoryHistoryStore(0)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, offset := range []int{3, 1, 2, 0} {
		_, err := s.Append(context.Background(), point("p1", base.Add(time.Duration(offset)*time.Hour), int64(1000+offset)))
		require.NoError(t, err)
	}

	got, err := s.Range(context.Background(), "p1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].ObservedAt.Before(got[i].ObservedAt))
	}

	latest, ok, err := s.Latest(context.Background(), "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1003), latest.PriceMinor)
}

func TestMemoryHistoryStore_RangeBounds(t *testing.T) {
	s := NewMemoryHistoryStore(0)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.Append(context.Background(), point("p1", base.Add(time.Duration(i)*time.Hour), int64(i)))
		require.NoError(t, err)
	}

	got, err := s.Range(context.Background(), "p1", base.Add(time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].PriceMinor)
	assert.Equal(t, int64(3), got[2].PriceMinor)
}

func TestMemoryHistoryStore_RetentionCap(t *testing.T) {
	s := NewMemoryHistoryStore(3)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.Append(context.Background(), point("p1", base.Add(time.Duration(i)*time.Hour), int64(i)))
		require.NoError(t, err)
	}

	got, err := s.Range(context.Background(), "p1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(2), got[0].PriceMinor)
	assert.Equal(t, int64(4), got[2].PriceMinor)
}

func TestMemoryHistoryStore_SnapshotRestore(t *testing.T) {
	s := NewMemoryHistoryStore(0)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := s.Append(context.Background(), point("p1", base, 100))
	require.NoError(t, err)
	_, err = s.Append(context.Background(), point("p2", base, 200))
	require.NoError(t, err)

	restored := NewMemoryHistoryStore(0)
	restored.Restore(s.Snapshot())

	latest, ok, err := restored.Latest(context.Background(), "p2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(200), latest.PriceMinor)
}
