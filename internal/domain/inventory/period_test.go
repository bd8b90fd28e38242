package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodKey(t *testing.T) {
	t.Run("next wraps december", func(t *testing.T) {
		assert.Equal(t, PeriodKey{Month: 1, Year: 2025}, PeriodKey{Month: 12, Year: 2024}.Next())
		assert.Equal(t, PeriodKey{Month: 4, Year: 2024}, PeriodKey{Month: 3, Year: 2024}.Next())
	})

	t.Run("previous wraps january", func(t *testing.T) {
		assert.Equal(t, PeriodKey{Month: 12, Year: 2023}, PeriodKey{Month: 1, Year: 2024}.Previous())
	})

	t.Run("ordering and formatting", func(t *testing.T) {
		a := PeriodKey{Month: 12, Year: 2023}
		b := PeriodKey{Month: 1, Year: 2024}
		assert.True(t, a.Before(b))
		assert.False(t, b.Before(a))
		assert.Equal(t, "2024-01", b.String())
	})

	t.Run("of time", func(t *testing.T) {
		ts := time.Date(2024, time.March, 31, 23, 0, 0, 0, time.UTC)
		assert.Equal(t, PeriodKey{Month: 3, Year: 2024}, PeriodKeyOf(ts))
	})

	t.Run("validation", func(t *testing.T) {
		_, err := NewPeriodKey(13, 2024)
		assert.Error(t, err)
		_, err = NewPeriodKey(0, 2024)
		assert.Error(t, err)
		k, err := NewPeriodKey(6, 2024)
		require.NoError(t, err)
		assert.Equal(t, 6, k.Month)
	})
}

func TestPeriod_Lifecycle(t *testing.T) {
	p, err := NewPeriod(PeriodKey{Month: 3, Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusOpen, p.Status)
	assert.Equal(t, ConfirmationPending, p.Confirmation)
	assert.NoError(t, p.CheckWritable())

	assert.Error(t, p.Close(), "open period cannot be closed")
	assert.Error(t, p.Confirm(), "open period cannot be confirmed")

	require.NoError(t, p.Start())
	assert.True(t, p.IsRunning())
	assert.NotNil(t, p.StartedAt)
	require.Len(t, p.PendingEvents(), 1)
	assert.Equal(t, EventTypePeriodStarted, p.PendingEvents()[0].EventType())

	assert.Error(t, p.Tombstone(), "running period cannot be tombstoned")
	assert.Error(t, p.Start())

	require.NoError(t, p.Close())
	assert.True(t, p.IsClosed())
	assert.NotNil(t, p.ClosedAt)
	assert.True(t, errors.Is(p.CheckWritable(), ErrPeriodClosed))
	assert.True(t, errors.Is(p.Close(), ErrPeriodClosed))

	require.NoError(t, p.Confirm())
	assert.Equal(t, ConfirmationConfirmed, p.Confirmation)
	require.NoError(t, p.Confirm(), "confirm is idempotent")

	require.NoError(t, p.Tombstone())
	assert.True(t, p.Tombstoned)
	assert.NotNil(t, p.TombstonedAt)
}

func TestPeriod_TombstonedCannotStart(t *testing.T) {
	p, err := NewPeriod(PeriodKey{Month: 1, Year: 2024})
	require.NoError(t, err)
	require.NoError(t, p.Tombstone())

	assert.True(t, errors.Is(p.Start(), ErrPeriodNotFound))
	assert.True(t, errors.Is(p.CheckWritable(), ErrPeriodNotFound))
}
