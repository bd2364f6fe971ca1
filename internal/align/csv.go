package align

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/roman-kulish/imu-alignment/internal/imu"
)

const (
	columnTimestamp = "TSTAMP"
	columnCounter   = "COUNTER"
	columnBattery   = "BAT"
)

// Columns returns the header of an aligned table: timestamp, counter and a
// battery plus four signal columns per device ("01_BAT", "01_1", ...).
func Columns(devices int) []string {
	cols := []string{columnTimestamp, columnCounter}
	for d := 1; d <= devices; d++ {
		cols = append(cols, fmt.Sprintf("%02d_%s", d, columnBattery))
		for i := 1; i <= imu.NumSignals; i++ {
			cols = append(cols, fmt.Sprintf("%02d_%d", d, i))
		}
	}
	return cols
}

// Record renders a row as CSV cells. Absent slots and missing timestamps
// render as empty cells.
func (r Row) Record() []string {
	rec := make([]string, 0, 2+len(r.Slots)*(1+imu.NumSignals))
	rec = append(rec, string(r.Timestamp), strconv.Itoa(int(r.Counter)))
	for _, slot := range r.Slots {
		if !slot.HasValue() {
			for i := 0; i <= imu.NumSignals; i++ {
				rec = append(rec, "")
			}
			continue
		}
		rec = append(rec, strconv.Itoa(int(slot.Battery)))
		for _, v := range slot.Signal {
			rec = append(rec, formatSignal(v))
		}
	}
	return rec
}

// WriteCSV writes the aligned table with a header row
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(t.Devices())); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range t.rows {
		if err := cw.Write(row.Record()); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteStreamCSV writes the decoded samples of one device in arrival order
func WriteStreamCSV(w io.Writer, s imu.DeviceStream) error {
	cw := csv.NewWriter(w)

	header := []string{columnTimestamp, columnCounter, "BATTERY"}
	for i := 1; i <= imu.NumSignals; i++ {
		header = append(header, strconv.Itoa(i))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i := 0; i < s.Len(); i++ {
		sample := s.At(i)
		rec := []string{string(sample.Timestamp), strconv.Itoa(int(sample.Counter)), strconv.Itoa(int(sample.Battery))}
		for _, v := range sample.Signal {
			rec = append(rec, formatSignal(v))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing sample %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatSignal(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
