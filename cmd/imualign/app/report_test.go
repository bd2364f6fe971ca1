package app

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/imu-alignment/internal/align"
)

func TestWriteReport(t *testing.T) {
	stats := &align.LossStatistics{
		Devices: []align.DeviceLoss{
			{Device: 1, Absent: 250, Fraction: 0.25},
			{Device: 2, Absent: 1000, Fraction: 1, Silent: true},
		},
		Histogram:  []int{0, 750, 250},
		Full:       0,
		Empty:      250,
		TotalRows:  1000,
		FillCount:  1250,
		EmptyCount: 250,
		TimeWindow: time.Hour + 2*time.Minute + 3*time.Second,
	}

	var sb strings.Builder
	require.NoError(t, WriteReport(&sb, stats, align.FillAbsent))
	report := sb.String()

	assert.Contains(t, report, "Rows:        1,000\n")
	assert.Contains(t, report, "Time window: 1h 2m 3s\n")
	assert.Contains(t, report, "Empty rows:  250 (25.00%)\n")
	assert.Contains(t, report, "Fill count:  1,250 (62.50% of slots, absent)\n")
	assert.Contains(t, report, "  1: 750 (75.00%)\n")
	assert.Contains(t, report, "  02: 1,000 (100.00%) never reported\n")
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "0%", percent(1, 0))
	assert.Equal(t, "33.33%", percent(1, 3))
}
