package align

import "github.com/roman-kulish/imu-alignment/internal/imu"

// SlotState tells whether a device reported at a tick
type SlotState uint8

const (
	SlotAbsent  SlotState = iota // No report and no fill value
	SlotPresent                  // The device reported at this tick
	SlotHeld                     // No report, filled with the last known value
)

func (s SlotState) String() string {
	switch s {
	case SlotPresent:
		return "present"
	case SlotHeld:
		return "held"
	default:
		return "absent"
	}
}

// Slot is one device's contribution to an aligned row
type Slot struct {
	State   SlotState
	Battery uint8
	Signal  [imu.NumSignals]float64
}

// Reported reports whether the device contributed a sample at this tick.
// Held slots are not reports.
func (s Slot) Reported() bool {
	return s.State == SlotPresent
}

// HasValue reports whether the slot carries a battery and signal value
func (s Slot) HasValue() bool {
	return s.State != SlotAbsent
}

// Row is one tick of the shared logical counter
type Row struct {
	Timestamp imu.Timestamp // Earliest contributing timestamp, empty when no device reported
	Counter   uint8
	Slots     []Slot // Indexed by device id - 1
}

// Hits returns the number of devices that reported at this tick
func (r Row) Hits() int {
	var n int
	for _, s := range r.Slots {
		if s.Reported() {
			n++
		}
	}
	return n
}

// Missing returns the number of devices that did not report at this tick
func (r Row) Missing() int {
	return len(r.Slots) - r.Hits()
}

// Table is the ordered output of one alignment run. It is only appended to
// while the aligner runs.
type Table struct {
	devices int
	rows    []Row
}

func newTable(devices, capacity int) *Table {
	return &Table{
		devices: devices,
		rows:    make([]Row, 0, capacity),
	}
}

func (t *Table) append(r Row) {
	t.rows = append(t.rows, r)
}

// Devices returns the number of device slots in every row
func (t *Table) Devices() int {
	return t.devices
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the i-th row
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Rows returns a copy of the table rows
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// FirstTimestamp returns the timestamp of the first row any device reported in
func (t *Table) FirstTimestamp() (imu.Timestamp, bool) {
	for _, r := range t.rows {
		if !r.Timestamp.IsZero() {
			return r.Timestamp, true
		}
	}
	return "", false
}

// LastTimestamp returns the timestamp of the last row any device reported in
func (t *Table) LastTimestamp() (imu.Timestamp, bool) {
	for i := len(t.rows) - 1; i >= 0; i-- {
		if !t.rows[i].Timestamp.IsZero() {
			return t.rows[i].Timestamp, true
		}
	}
	return "", false
}
