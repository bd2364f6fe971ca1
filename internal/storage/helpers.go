package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roman-kulish/imu-alignment/internal/align"
	"github.com/roman-kulish/imu-alignment/internal/imu"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

func toSampleData(sessionID, seq int64, s imu.RawSample) *sampleData {
	var tod sql.NullInt64
	if d, err := s.Timestamp.TimeOfDay(); err == nil {
		tod.Int64 = d.Milliseconds()
		tod.Valid = true
	}

	return &sampleData{
		SessionID: sessionID,
		Seq:       seq,
		DeviceID:  s.Device,
		Battery:   int(s.Battery),
		Counter:   int(s.Counter),
		Q1:        s.Signal[0],
		Q2:        s.Signal[1],
		Q3:        s.Signal[2],
		Q4:        s.Signal[3],
		Timestamp: string(s.Timestamp),
		TimeOfDay: tod,
	}
}

func fromSampleData(d *sampleData) imu.RawSample {
	return imu.RawSample{
		Device:    d.DeviceID,
		Battery:   uint8(d.Battery),
		Counter:   uint8(d.Counter),
		Signal:    [imu.NumSignals]float64{d.Q1, d.Q2, d.Q3, d.Q4},
		Timestamp: imu.Timestamp(d.Timestamp),
	}
}

func toStatisticsData(policy string, s *align.LossStatistics) (*statisticsData, error) {
	histogram, err := json.Marshal(s.Histogram)
	if err != nil {
		return nil, fmt.Errorf("marshaling histogram: %w", err)
	}
	devices, err := json.Marshal(s.Devices)
	if err != nil {
		return nil, fmt.Errorf("marshaling device losses: %w", err)
	}

	return &statisticsData{
		Policy:       policy,
		TotalRows:    s.TotalRows,
		FullRows:     s.Full,
		EmptyRows:    s.Empty,
		FillCount:    s.FillCount,
		TimeWindowMs: s.TimeWindow.Milliseconds(),
		Histogram:    string(histogram),
		Devices:      string(devices),
	}, nil
}

func fromStatisticsData(d *statisticsData) (*StatisticsRecord, error) {
	rec := StatisticsRecord{
		ID:        d.ID,
		CreatedAt: d.CreatedAt,
		Policy:    d.Policy,
		Stats: align.LossStatistics{
			TotalRows:  d.TotalRows,
			Full:       d.FullRows,
			Empty:      d.EmptyRows,
			FillCount:  d.FillCount,
			EmptyCount: d.EmptyRows,
			TimeWindow: time.Duration(d.TimeWindowMs) * time.Millisecond,
		},
	}
	if err := json.Unmarshal([]byte(d.Histogram), &rec.Stats.Histogram); err != nil {
		return nil, fmt.Errorf("unmarshaling histogram: %w", err)
	}
	if err := json.Unmarshal([]byte(d.Devices), &rec.Stats.Devices); err != nil {
		return nil, fmt.Errorf("unmarshaling device losses: %w", err)
	}
	return &rec, nil
}

func marshalConfig(config any) (sql.NullString, error) {
	var configData sql.NullString
	if config == nil {
		return configData, nil
	}

	switch v := config.(type) {
	case string:
		configData.String = v
	case []byte:
		configData.String = string(v)
	default:
		p, err := json.Marshal(config)
		if err != nil {
			return configData, fmt.Errorf("marshaling config: %w", err)
		}
		configData.String = string(p)
	}
	configData.Valid = true
	return configData, nil
}
