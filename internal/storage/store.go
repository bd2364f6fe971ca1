package storage

import (
	"context"

	"github.com/roman-kulish/imu-alignment/internal/align"
	"github.com/roman-kulish/imu-alignment/internal/imu"
)

// Store provides persistence for decoded IMU logs and the loss statistics
// computed from them.
type Store interface {
	// CreateSession registers a new ingested log and returns its identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - source: Origin of the log, usually the file name
	//   - devices: Configured device count
	//   - config: Optional configuration. Can be string, []byte, or JSON-serializable object
	CreateSession(ctx context.Context, source string, devices int, config any) (sessionID int64, err error)

	// Session retrieves a session by its ID.
	Session(ctx context.Context, id int64) (*Session, error)

	// Sessions returns all sessions ordered by start time.
	Sessions(ctx context.Context) ([]*Session, error)

	// StoreLog saves every decoded sample of the log. Arrival order within
	// each device is preserved across repeated calls for the same session.
	StoreLog(ctx context.Context, sessionID int64, log *imu.Log) error

	// ReadStreams loads the samples of a session back into one stream per
	// device, in arrival order, optionally bounded by time of day.
	ReadStreams(ctx context.Context, sessionID int64, devices int, opts ...ReaderOption) ([]imu.DeviceStream, error)

	// StoreStatistics persists a loss statistics snapshot.
	StoreStatistics(ctx context.Context, sessionID int64, policy string, stats *align.LossStatistics) (int64, error)

	// Statistics returns the snapshots of a session, oldest first.
	Statistics(ctx context.Context, sessionID int64) ([]*StatisticsRecord, error)

	// Close releases all database connections. It is safe to call Close
	// multiple times.
	Close() error
}

var _ Store = (*SqliteStore)(nil)
