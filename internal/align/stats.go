package align

import "time"

const day = 24 * time.Hour

// DeviceLoss is the loss of one device over an aligned table
type DeviceLoss struct {
	Device   int     `json:"device"`
	Absent   int     `json:"absent"`   // Rows the device did not report in
	Fraction float64 `json:"fraction"` // Absent / TotalRows
	Silent   bool    `json:"silent"`   // The device never reported
}

// LossStatistics aggregates data loss over one aligned table
type LossStatistics struct {
	Devices    []DeviceLoss  `json:"devices"`
	Histogram  []int         `json:"histogram"` // Histogram[k] is the number of rows with exactly k devices missing
	Full       int           `json:"full"`      // Rows every device reported in
	Empty      int           `json:"empty"`     // Rows no device reported in
	TotalRows  int           `json:"totalRows"`
	FillCount  int           `json:"fillCount"`
	EmptyCount int           `json:"emptyCount"`
	TimeWindow time.Duration `json:"timeWindow"`
}

// ComputeStatistics derives loss statistics from an alignment result. It
// fails only when the first or last row timestamp cannot be parsed.
func ComputeStatistics(r *Result) (*LossStatistics, error) {
	t := r.Table
	n := t.Devices()

	stats := LossStatistics{
		Devices:    make([]DeviceLoss, n),
		Histogram:  make([]int, n+1),
		TotalRows:  t.Len(),
		FillCount:  r.FillCount,
		EmptyCount: r.EmptyCount,
	}
	for d := range stats.Devices {
		stats.Devices[d].Device = d + 1
	}

	for _, row := range t.rows {
		missing := 0
		for d, slot := range row.Slots {
			if !slot.Reported() {
				stats.Devices[d].Absent++
				missing++
			}
		}
		stats.Histogram[missing]++
	}

	stats.Full = stats.Histogram[0]
	stats.Empty = stats.Histogram[n]

	for d := range stats.Devices {
		dl := &stats.Devices[d]
		if stats.TotalRows > 0 {
			dl.Fraction = float64(dl.Absent) / float64(stats.TotalRows)
			dl.Silent = dl.Absent == stats.TotalRows
		}
	}

	window, err := timeWindow(t)
	if err != nil {
		return nil, err
	}
	stats.TimeWindow = window

	return &stats, nil
}

// timeWindow returns the time between the first and the last row that a
// device reported in. Recordings crossing midnight wrap around once.
func timeWindow(t *Table) (time.Duration, error) {
	first, ok := t.FirstTimestamp()
	if !ok {
		return 0, nil
	}
	last, _ := t.LastTimestamp()

	start, err := first.TimeOfDay()
	if err != nil {
		return 0, err
	}
	end, err := last.TimeOfDay()
	if err != nil {
		return 0, err
	}

	d := end - start
	if d < 0 {
		d += day
	}
	return d, nil
}

// HMS splits the time window into whole hours, minutes and seconds
func (s *LossStatistics) HMS() (hours, minutes, seconds int) {
	total := int(s.TimeWindow / time.Second)
	return total / 3600, (total % 3600) / 60, total % 60
}

// FillRatio is the share of device slots handled by the fill policy
func (s *LossStatistics) FillRatio() float64 {
	if s.TotalRows == 0 || len(s.Devices) == 0 {
		return 0
	}
	return float64(s.FillCount) / float64(s.TotalRows*len(s.Devices))
}

// EmptyRatio is the share of rows no device reported in
func (s *LossStatistics) EmptyRatio() float64 {
	if s.TotalRows == 0 {
		return 0
	}
	return float64(s.EmptyCount) / float64(s.TotalRows)
}

// Silent returns the ids of devices that never reported
func (s *LossStatistics) Silent() []int {
	var ids []int
	for _, d := range s.Devices {
		if d.Silent {
			ids = append(ids, d.Device)
		}
	}
	return ids
}
