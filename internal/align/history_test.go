package align_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/imu-alignment/internal/align"
)

func TestLossHistory_Eviction(t *testing.T) {
	h, err := align.NewLossHistory(3)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Cap())
	assert.Empty(t, h.Snapshot())

	for i := 1; i <= 5; i++ {
		h.Push(align.LossPoint{Start: time.Duration(i) * time.Second, Rows: 10, Fill: i, Empty: 1})
	}

	assert.Equal(t, 3, h.Len())
	points := h.Snapshot()
	require.Len(t, points, 3)
	assert.Equal(t, 3*time.Second, points[0].Start)
	assert.Equal(t, 4*time.Second, points[1].Start)
	assert.Equal(t, 5*time.Second, points[2].Start)

	rows, fill, empty := h.Totals()
	assert.Equal(t, 30, rows)
	assert.Equal(t, 12, fill)
	assert.Equal(t, 3, empty)

	h.Clear()
	assert.Zero(t, h.Len())
	assert.Empty(t, h.Snapshot())

	h.Push(align.LossPoint{Start: time.Minute})
	assert.Equal(t, []align.LossPoint{{Start: time.Minute}}, h.Snapshot())
}

func TestLossHistory_InvalidCapacity(t *testing.T) {
	_, err := align.NewLossHistory(0)
	assert.Error(t, err)
}

func TestLossHistory_Concurrent(t *testing.T) {
	h, err := align.NewLossHistory(align.DefaultHistorySize)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Push(align.LossPoint{Rows: 1})
				_ = h.Snapshot()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, align.DefaultHistorySize, h.Len())
	rows, _, _ := h.Totals()
	assert.Equal(t, align.DefaultHistorySize, rows)
}
