package imu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/imu-alignment/internal/imu"
)

func TestBuildStreams(t *testing.T) {
	samples := []imu.RawSample{
		{Device: 2, Counter: 5},
		{Device: 1, Counter: 7},
		{Device: 2, Counter: 6},
		{Device: 9, Counter: 1},
		{Device: 0, Counter: 1},
	}

	streams := imu.BuildStreams(samples, 3)
	require.Len(t, streams, 3)

	for i, s := range streams {
		assert.Equal(t, i+1, s.Device())
	}
	assert.Equal(t, 1, streams[0].Len())
	require.Equal(t, 2, streams[1].Len())
	assert.Equal(t, uint8(5), streams[1].At(0).Counter)
	assert.Equal(t, uint8(6), streams[1].At(1).Counter)
	assert.Zero(t, streams[2].Len())
}

func TestDeviceStream_Filter(t *testing.T) {
	s := imu.NewDeviceStream(1,
		imu.RawSample{Device: 1, Counter: 1},
		imu.RawSample{Device: 1, Counter: 2},
		imu.RawSample{Device: 1, Counter: 3},
	)

	odd := s.Filter(func(r imu.RawSample) bool { return r.Counter%2 == 1 })
	require.Equal(t, 2, odd.Len())
	assert.Equal(t, uint8(3), odd.At(1).Counter)
	assert.Equal(t, 3, s.Len())

	copied := s.Samples()
	copied[0].Counter = 99
	assert.Equal(t, uint8(1), s.At(0).Counter)
}
