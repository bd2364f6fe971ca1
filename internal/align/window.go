package align

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roman-kulish/imu-alignment/internal/imu"
)

const (
	// DefaultSamplingRate is the number of samples per second every IMU emits
	DefaultSamplingRate = 10

	// DefaultReference is the device whose stream anchors the window counter
	DefaultReference = 3

	// DefaultTolerance is the grace added to the window end to absorb clock
	// skew between devices. It is a policy constant, not a tuning knob.
	DefaultTolerance = 2 * time.Second
)

// WithReference sets the device that anchors the window
func WithReference(device int) func(*WindowQuery) {
	return func(q *WindowQuery) {
		q.reference = device
	}
}

// WithSamplingRate sets the per-device sampling rate in samples per second
func WithSamplingRate(rate int) func(*WindowQuery) {
	return func(q *WindowQuery) {
		q.rate = rate
	}
}

// WithTolerance sets the grace period added to the window end
func WithTolerance(d time.Duration) func(*WindowQuery) {
	return func(q *WindowQuery) {
		q.tolerance = d
	}
}

// WithWindowLogger sets the logger for the window query
func WithWindowLogger(logger *slog.Logger) func(*WindowQuery) {
	return func(q *WindowQuery) {
		q.logger = logger
	}
}

// WindowResult is the aligned content of one live window
type WindowResult struct {
	*Result

	Start        time.Duration // Requested start, time of day
	Anchor       imu.RawSample // First reference sample at or after Start
	StartCounter uint8
	EndCounter   uint8 // Exclusive
	Ticks        int
}

// WindowQuery selects a bounded slice of history starting at a wall-clock
// time and aligns it with the hold-last policy.
type WindowQuery struct {
	aligner   *Aligner
	reference int
	rate      int
	tolerance time.Duration
	logger    *slog.Logger
}

// NewWindowQuery creates a window query for the given number of devices
func NewWindowQuery(devices int, options ...func(*WindowQuery)) (*WindowQuery, error) {
	q := WindowQuery{
		reference: min(DefaultReference, devices),
		rate:      DefaultSamplingRate,
		tolerance: DefaultTolerance,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&q)
	}

	if q.reference < 1 || q.reference > devices {
		return nil, fmt.Errorf("reference device %d outside 1..%d", q.reference, devices)
	}
	if q.rate <= 0 {
		return nil, fmt.Errorf("invalid sampling rate %d", q.rate)
	}
	if q.tolerance < 0 {
		return nil, fmt.Errorf("negative tolerance %s", q.tolerance)
	}

	aligner, err := NewAligner(devices, WithFillPolicy(FillHoldLast), WithLogger(q.logger))
	if err != nil {
		return nil, err
	}
	q.aligner = aligner

	return &q, nil
}

// Devices returns the configured device count
func (q *WindowQuery) Devices() int {
	return q.aligner.Devices()
}

// Ticks returns the number of counter ticks a window of the given length spans
func (q *WindowQuery) Ticks(seconds int) int {
	return seconds * q.rate
}

// Run aligns the window of the given length in seconds that begins with the
// first reference sample at or after start.
func (q *WindowQuery) Run(ctx context.Context, streams []imu.DeviceStream, start time.Duration, seconds int) (*WindowResult, error) {
	ticks := q.Ticks(seconds)
	if seconds <= 0 || ticks >= imu.CounterModulo {
		return nil, imu.NewError(imu.KindInvalidWindow,
			fmt.Sprintf("window of %ds spans %d ticks, must be within 1..%d", seconds, ticks, imu.CounterModulo-1))
	}
	if len(streams) != q.Devices() {
		return nil, imu.NewError(imu.KindDeviceMismatch, fmt.Sprintf("expected %d streams, got %d", q.Devices(), len(streams)))
	}

	anchor, from, err := q.anchor(streams[q.reference-1], start)
	if err != nil {
		return nil, err
	}
	to := from + time.Duration(seconds)*time.Second + q.tolerance

	candidates := make([]imu.DeviceStream, len(streams))
	for d, stream := range streams {
		var keep []imu.RawSample
		for i := 0; i < stream.Len(); i++ {
			sample := stream.At(i)
			tod, err := sample.Timestamp.TimeOfDay()
			if err != nil {
				return nil, err
			}
			if tod >= from && tod <= to {
				keep = append(keep, sample)
			}
		}
		candidates[d] = imu.NewDeviceStream(stream.Device(), keep...)
	}

	result, err := q.aligner.AlignRange(ctx, candidates, anchor.Counter, ticks)
	if err != nil {
		return nil, err
	}

	q.logger.Debug("window aligned",
		slog.String("start", imu.FormatClock(start)),
		slog.String("anchor", anchor.Timestamp.Clock()),
		slog.Int("startCounter", int(anchor.Counter)),
		slog.Int("ticks", ticks),
		slog.Int("fill", result.FillCount),
		slog.Int("empty", result.EmptyCount))

	return &WindowResult{
		Result:       result,
		Start:        start,
		Anchor:       anchor,
		StartCounter: anchor.Counter,
		EndCounter:   uint8((int(anchor.Counter) + ticks) % imu.CounterModulo),
		Ticks:        ticks,
	}, nil
}

func (q *WindowQuery) anchor(ref imu.DeviceStream, start time.Duration) (imu.RawSample, time.Duration, error) {
	for i := 0; i < ref.Len(); i++ {
		sample := ref.At(i)
		tod, err := sample.Timestamp.TimeOfDay()
		if err != nil {
			return imu.RawSample{}, 0, err
		}
		if tod >= start {
			return sample, tod, nil
		}
	}
	return imu.RawSample{}, 0, imu.NewError(imu.KindNoData,
		fmt.Sprintf("no sample of reference device %d at or after %s", q.reference, imu.FormatClock(start)))
}
