package align

import (
	"context"
	"fmt"
	"io"

	"github.com/roman-kulish/imu-alignment/internal/imu"
)

// BatchResult is the output of an offline alignment of a full log
type BatchResult struct {
	Log    *imu.Log
	Result *Result
	Stats  *LossStatistics
}

// RunBatch decodes a raw log, aligns its device streams and computes the
// loss statistics of the aligned table.
func RunBatch(ctx context.Context, r io.Reader, aligner *Aligner) (*BatchResult, error) {
	log, err := imu.ReadLog(r, aligner.Devices())
	if err != nil {
		return nil, fmt.Errorf("decoding log: %w", err)
	}
	if log.Decoded == 0 {
		return nil, imu.NewError(imu.KindNoData, fmt.Sprintf("no valid record in %d data lines", log.Lines))
	}

	return AlignLog(ctx, log, aligner)
}

// AlignLog aligns an already decoded log
func AlignLog(ctx context.Context, log *imu.Log, aligner *Aligner) (*BatchResult, error) {
	result, err := aligner.Align(ctx, log.Streams)
	if err != nil {
		return nil, fmt.Errorf("aligning streams: %w", err)
	}

	stats, err := ComputeStatistics(result)
	if err != nil {
		return nil, fmt.Errorf("computing statistics: %w", err)
	}

	return &BatchResult{
		Log:    log,
		Result: result,
		Stats:  stats,
	}, nil
}
