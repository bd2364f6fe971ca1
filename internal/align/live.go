package align

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roman-kulish/imu-alignment/internal/imu"
)

// StreamSource provides the device streams a live window is cut from
type StreamSource interface {
	// Streams returns one stream per device holding, at least, every sample
	// recorded at or after from (time of day), in arrival order.
	Streams(ctx context.Context, from time.Duration) ([]imu.DeviceStream, error)
}

// StaticSource serves streams decoded in memory
type StaticSource []imu.DeviceStream

func (s StaticSource) Streams(_ context.Context, _ time.Duration) ([]imu.DeviceStream, error) {
	return s, nil
}

// WithHistorySize sets the number of windows kept in the loss history
func WithHistorySize(size int) func(*LiveSession) {
	return func(s *LiveSession) {
		s.historySize = size
	}
}

// WithSessionLogger sets the logger for the live session
func WithSessionLogger(logger *slog.Logger) func(*LiveSession) {
	return func(s *LiveSession) {
		s.logger = logger
	}
}

// LiveSession polls consecutive windows from a source and keeps a bounded
// history of their data loss.
type LiveSession struct {
	id      uuid.UUID
	source  StreamSource
	query   *WindowQuery
	history *LossHistory

	historySize int
	logger      *slog.Logger
}

// NewLiveSession creates a live session reading from source
func NewLiveSession(source StreamSource, query *WindowQuery, options ...func(*LiveSession)) (*LiveSession, error) {
	s := LiveSession{
		id:          uuid.New(),
		source:      source,
		query:       query,
		historySize: DefaultHistorySize,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&s)
	}

	history, err := NewLossHistory(s.historySize)
	if err != nil {
		return nil, err
	}
	s.history = history
	s.logger = s.logger.With(slog.String("session", s.id.String()))

	return &s, nil
}

// ID returns the session identifier
func (s *LiveSession) ID() uuid.UUID {
	return s.id
}

// Devices returns the number of devices of every polled window
func (s *LiveSession) Devices() int {
	return s.query.Devices()
}

// Poll aligns the window of the given length starting at start and records
// its loss in the session history.
func (s *LiveSession) Poll(ctx context.Context, start time.Duration, seconds int) (*WindowResult, *LossStatistics, error) {
	streams, err := s.source.Streams(ctx, start)
	if err != nil {
		return nil, nil, fmt.Errorf("loading streams: %w", err)
	}

	window, err := s.query.Run(ctx, streams, start, seconds)
	if err != nil {
		return nil, nil, err
	}

	stats, err := ComputeStatistics(window.Result)
	if err != nil {
		return nil, nil, fmt.Errorf("computing statistics: %w", err)
	}

	s.history.Push(LossPoint{
		Start:        start,
		StartCounter: window.StartCounter,
		Rows:         window.Rows(),
		Fill:         window.FillCount,
		Empty:        window.EmptyCount,
	})

	s.logger.Info("window polled",
		slog.String("start", imu.FormatClock(start)),
		slog.Int("fromCounter", int(window.StartCounter)),
		slog.Int("toCounter", int(window.EndCounter)),
		slog.Int("fill", window.FillCount),
		slog.Int("empty", window.EmptyCount))

	return window, stats, nil
}

// History returns the recorded loss points, oldest first
func (s *LiveSession) History() []LossPoint {
	return s.history.Snapshot()
}

// HistoryBuffer returns the session's loss history
func (s *LiveSession) HistoryBuffer() *LossHistory {
	return s.history
}
