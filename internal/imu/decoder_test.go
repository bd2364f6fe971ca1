package imu_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/imu-alignment/internal/imu"
)

const sampleLog = `Receiver v2.1
Waiting for devices...
[01],[64],[00],[0A],[7F],[00],[81],[FF],01:02:12:00:00:100
[02],[63],[00],[0A],[00],[01],[02],[03],01:02:12:00:00:110
[03],[62],[FF],[0A],[00],[00],[00],[00],01:02:12:00:00:120

[01],[64],[00],[0B],[7F],[00],[81],[FF],01:02:12:00:00:200
[07],[64],[00],[0B],[00],[00],[00],[00],01:02:12:00:00:205
[03],[62],[00],[0B],[ZZ],[00],[00],[00],01:02:12:00:00:220
[03],[62],[00],[0C],[00],[00],[00],[00],01:02:12:00:00:320
`

func TestParseLine(t *testing.T) {
	s, err := imu.ParseLine("[02],[5A],[00],[FE],[7F],[80],[81],[01],03:04:23:59:59:999")
	require.NoError(t, err)

	assert.Equal(t, 2, s.Device)
	assert.Equal(t, uint8(0x5A), s.Battery)
	assert.Equal(t, uint8(0xFE), s.Counter)
	assert.Equal(t, imu.Timestamp("03:04:23:59:59:999"), s.Timestamp)
	assert.InDelta(t, 1.0, s.Signal[0], 1e-9)
	assert.InDelta(t, -128.0/127, s.Signal[1], 1e-9)
	assert.InDelta(t, -1.0, s.Signal[2], 1e-9)
	assert.InDelta(t, 1.0/127, s.Signal[3], 1e-9)
}

func TestParseLine_Rejects(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"invalid check", "[01],[64],[FF],[0A],[00],[00],[00],[00],01:02:12:00:00:100", imu.ErrInvalidRecord},
		{"invalid check lowercase", "[01],[64],[ff],[0A],[00],[00],[00],[00],01:02:12:00:00:100", imu.ErrInvalidRecord},
		{"too few fields", "[01],[64],[00],[0A],[00],01:02:12:00:00:100", imu.ErrMalformedRecord},
		{"bad counter", "[01],[64],[00],[XX],[00],[00],[00],[00],01:02:12:00:00:100", imu.ErrMalformedRecord},
		{"counter overflow", "[01],[64],[00],[100],[00],[00],[00],[00],01:02:12:00:00:100", imu.ErrMalformedRecord},
		{"bad payload", "[01],[64],[00],[0A],[00],[00],[G0],[00],01:02:12:00:00:100", imu.ErrMalformedRecord},
		{"empty timestamp", "[01],[64],[00],[0A],[00],[00],[00],[00],", imu.ErrMalformedRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := imu.ParseLine(tt.line)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadLog(t *testing.T) {
	log, err := imu.ReadLog(strings.NewReader(sampleLog), 3)
	require.NoError(t, err)

	assert.Equal(t, 3, log.Devices)
	assert.Len(t, log.Streams, 3)
	assert.Equal(t, 7, log.Lines)
	assert.Equal(t, 4, log.Decoded)
	assert.Equal(t, 1, log.Invalid)
	assert.Equal(t, 1, log.Malformed)
	assert.Equal(t, 1, log.Foreign)
	assert.Equal(t, 3, log.Seen())

	d1 := log.Stream(1)
	require.Equal(t, 2, d1.Len())
	assert.Equal(t, uint8(0x0A), d1.At(0).Counter)
	assert.Equal(t, uint8(0x0B), d1.At(1).Counter)
	assert.Equal(t, 1, d1.Device())

	d3 := log.Stream(3)
	require.Equal(t, 1, d3.Len())
	assert.Equal(t, uint8(0x0C), d3.At(0).Counter)
}

func TestReadLog_NoData(t *testing.T) {
	_, err := imu.ReadLog(strings.NewReader("Receiver v2.1\nno devices\n"), 3)
	require.Error(t, err)
	assert.True(t, imu.IsKind(err, imu.KindNoData))
}

func TestReadLog_OnlyInvalidRecords(t *testing.T) {
	log, err := imu.ReadLog(strings.NewReader("[01],[64],[FF],[0A],[00],[00],[00],[00],01:02:12:00:00:100\n"), 2)
	require.NoError(t, err)

	assert.Equal(t, 0, log.Decoded)
	assert.Equal(t, 1, log.Invalid)
	assert.Equal(t, 0, log.Seen())
	for d := 1; d <= 2; d++ {
		assert.Zero(t, log.Stream(d).Len())
	}
}

func TestReadLog_InvalidDeviceCount(t *testing.T) {
	_, err := imu.ReadLog(strings.NewReader(sampleLog), 0)
	assert.True(t, imu.IsKind(err, imu.KindDeviceMismatch))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, assert.AnError
}

func TestReadLog_ReadError(t *testing.T) {
	_, err := imu.ReadLog(failingReader{}, 3)
	require.Error(t, err)
	assert.True(t, imu.IsKind(err, imu.KindIO))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestReadLog_IndentedPreamble(t *testing.T) {
	input := "Receiver v2.1\n" +
		"  [status],[ok]\n" +
		"[01],[64],[00],[0A],[7F],[00],[81],[FF],01:02:12:00:00:100\n"

	log, err := imu.ReadLog(strings.NewReader(input), 3)
	require.NoError(t, err)

	assert.Equal(t, 1, log.Lines)
	assert.Equal(t, 1, log.Decoded)
	assert.Zero(t, log.Malformed)

	_, err = imu.ReadLog(strings.NewReader("Receiver v2.1\n\t[01],[64],[00],[0A],[7F],[00],[81],[FF],01:02:12:00:00:100\n"), 3)
	assert.True(t, imu.IsKind(err, imu.KindNoData))
}
