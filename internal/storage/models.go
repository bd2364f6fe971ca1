package storage

import (
	"database/sql"
	"time"

	"github.com/roman-kulish/imu-alignment/internal/align"
)

// Session is one ingested log
type Session struct {
	ID        int64
	StartTime time.Time
	Source    string  // Log file name or other origin
	Devices   int     // Configured device count
	Config    *string // Optional JSON encoded alignment configuration
}

// StatisticsRecord is a persisted loss statistics snapshot
type StatisticsRecord struct {
	ID        int64
	CreatedAt time.Time
	Policy    string
	Stats     align.LossStatistics
}

type sampleData struct {
	SessionID int64
	Seq       int64
	DeviceID  int
	Battery   int
	Counter   int
	Q1        float64
	Q2        float64
	Q3        float64
	Q4        float64
	Timestamp string
	TimeOfDay sql.NullInt64 // Milliseconds since midnight, NULL when unparseable
}

type statisticsData struct {
	ID           int64
	CreatedAt    time.Time
	Policy       string
	TotalRows    int
	FullRows     int
	EmptyRows    int
	FillCount    int
	TimeWindowMs int64
	Histogram    string
	Devices      string
}
