package align

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roman-kulish/imu-alignment/internal/imu"
)

// FillPolicy decides what a missed slot holds
type FillPolicy int

const (
	// FillAbsent leaves missed slots absent. Used for offline alignment.
	FillAbsent FillPolicy = iota

	// FillHoldLast fills missed slots with the device's last observed value,
	// or a zero payload if the device has not reported yet. Used by the live
	// window path.
	FillHoldLast
)

func (p FillPolicy) String() string {
	switch p {
	case FillHoldLast:
		return "hold-last"
	default:
		return "absent"
	}
}

// Termination decides when batch alignment stops. Stopping at the first
// exhausted stream drops whatever the other devices reported afterwards.
type Termination int

const (
	// StopAtFirstExhausted stops as soon as any device stream is exhausted
	StopAtFirstExhausted Termination = iota

	// ContinueUntilAllExhausted keeps going until every stream is exhausted;
	// exhausted streams miss every remaining tick
	ContinueUntilAllExhausted
)

func (t Termination) String() string {
	switch t {
	case ContinueUntilAllExhausted:
		return "continue-until-all-exhausted"
	default:
		return "stop-at-first-exhausted"
	}
}

// ParseTermination parses the names returned by Termination.String
func ParseTermination(s string) (Termination, error) {
	switch s {
	case "", StopAtFirstExhausted.String():
		return StopAtFirstExhausted, nil
	case ContinueUntilAllExhausted.String():
		return ContinueUntilAllExhausted, nil
	default:
		return 0, fmt.Errorf("unknown termination policy '%s'", s)
	}
}

const progressEvery = 4096

// Result is the output of one alignment run
type Result struct {
	Table        *Table
	Policy       FillPolicy
	StartCounter uint8
	FillCount    int // Missed slots handled by the fill policy
	EmptyCount   int // Rows where no device reported
}

// Rows returns the number of aligned rows
func (r *Result) Rows() int {
	return r.Table.Len()
}

// WithFillPolicy sets the fill policy for missed slots
func WithFillPolicy(p FillPolicy) func(*Aligner) {
	return func(a *Aligner) {
		a.fill = p
	}
}

// WithTermination sets the batch termination policy
func WithTermination(t Termination) func(*Aligner) {
	return func(a *Aligner) {
		a.termination = t
	}
}

// WithLogger sets the logger for the aligner
func WithLogger(logger *slog.Logger) func(*Aligner) {
	return func(a *Aligner) {
		a.logger = logger
	}
}

// WithProgress sets a callback invoked periodically with the number of rows
// aligned so far
func WithProgress(fn func(rows int)) func(*Aligner) {
	return func(a *Aligner) {
		a.progress = fn
	}
}

// Aligner merges N device streams into one table using the shared sample
// counter as join key. An Aligner holds configuration only and can be reused
// for independent runs, concurrently.
type Aligner struct {
	devices     int
	fill        FillPolicy
	termination Termination
	progress    func(rows int)
	logger      *slog.Logger
}

// NewAligner creates an aligner for the given number of devices
func NewAligner(devices int, options ...func(*Aligner)) (*Aligner, error) {
	if devices <= 0 {
		return nil, fmt.Errorf("invalid device count %d", devices)
	}

	a := Aligner{
		devices: devices,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&a)
	}

	return &a, nil
}

// Devices returns the configured device count
func (a *Aligner) Devices() int {
	return a.devices
}

// Policy returns the configured fill policy
func (a *Aligner) Policy() FillPolicy {
	return a.fill
}

// Termination returns the configured termination policy
func (a *Aligner) Termination() Termination {
	return a.termination
}

// Align walks the shared counter from the smallest first counter of all
// streams, consuming each stream's next record when its counter matches the
// current tick. It stops according to the termination policy.
func (a *Aligner) Align(ctx context.Context, streams []imu.DeviceStream) (*Result, error) {
	if len(streams) != a.devices {
		return nil, imu.NewError(imu.KindDeviceMismatch, fmt.Sprintf("expected %d streams, got %d", a.devices, len(streams)))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start, ok := startCounter(streams)
	if !ok {
		return nil, imu.NewError(imu.KindNoData, "all device streams are empty")
	}

	var capacity int
	for _, s := range streams {
		capacity = max(capacity, s.Len())
	}

	state := newTickState(a.devices, a.fill, capacity)
	cursors := make([]int, a.devices)
	hits := make([]*imu.RawSample, a.devices)
	counter := start

	for a.active(streams, cursors) {
		if n := state.table.Len(); n > 0 && n%progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if a.progress != nil {
				a.progress(n)
			}
		}

		for d, stream := range streams {
			hits[d] = nil
			if cursors[d] >= stream.Len() {
				continue
			}
			if sample := stream.At(cursors[d]); sample.Counter == counter {
				hits[d] = &sample
				cursors[d]++
			}
		}

		state.tick(counter, hits)
		counter++ // wraps at 256
	}

	if state.table.Len() == 0 {
		return nil, imu.NewError(imu.KindDeviceMismatch,
			fmt.Sprintf("%d of %d devices reported, nothing can be aligned with policy %s", seen(streams), a.devices, a.termination))
	}

	a.logger.Debug("alignment finished",
		slog.Int("rows", state.table.Len()),
		slog.Int("fill", state.fills),
		slog.Int("empty", state.empty),
		slog.String("policy", a.fill.String()),
		slog.String("termination", a.termination.String()))

	return state.result(start), nil
}

// AlignRange emits exactly ticks rows starting at counter start. For every
// tick each device contributes the first record of its stream with the
// expected counter, if any.
func (a *Aligner) AlignRange(ctx context.Context, streams []imu.DeviceStream, start uint8, ticks int) (*Result, error) {
	if len(streams) != a.devices {
		return nil, imu.NewError(imu.KindDeviceMismatch, fmt.Sprintf("expected %d streams, got %d", a.devices, len(streams)))
	}
	if ticks <= 0 || ticks >= imu.CounterModulo {
		return nil, imu.NewError(imu.KindInvalidWindow, fmt.Sprintf("tick count %d outside 1..%d", ticks, imu.CounterModulo-1))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// first index of every counter value, per device
	index := make([][imu.CounterModulo]int, a.devices)
	for d, stream := range streams {
		for c := range index[d] {
			index[d][c] = -1
		}
		for i := 0; i < stream.Len(); i++ {
			c := stream.At(i).Counter
			if index[d][c] < 0 {
				index[d][c] = i
			}
		}
	}

	state := newTickState(a.devices, a.fill, ticks)
	hits := make([]*imu.RawSample, a.devices)
	counter := start

	for t := 0; t < ticks; t++ {
		for d, stream := range streams {
			hits[d] = nil
			if i := index[d][counter]; i >= 0 {
				sample := stream.At(i)
				hits[d] = &sample
			}
		}

		state.tick(counter, hits)
		counter++
	}

	return state.result(start), nil
}

func (a *Aligner) active(streams []imu.DeviceStream, cursors []int) bool {
	switch a.termination {
	case ContinueUntilAllExhausted:
		for d, s := range streams {
			if cursors[d] < s.Len() {
				return true
			}
		}
		return false

	default:
		for d, s := range streams {
			if cursors[d] >= s.Len() {
				return false
			}
		}
		return true
	}
}

// startCounter returns the smallest counter among the first records of the
// non-empty streams
func startCounter(streams []imu.DeviceStream) (uint8, bool) {
	var start uint8
	var found bool
	for _, s := range streams {
		if s.Len() == 0 {
			continue
		}
		if c := s.At(0).Counter; !found || c < start {
			start = c
			found = true
		}
	}
	return start, found
}

func seen(streams []imu.DeviceStream) int {
	var n int
	for _, s := range streams {
		if s.Len() > 0 {
			n++
		}
	}
	return n
}

// tickState builds rows and carries the per-device hold-last values
type tickState struct {
	devices int
	fill    FillPolicy
	table   *Table

	last     []Slot
	reported []bool

	fills int
	empty int
}

func newTickState(devices int, fill FillPolicy, capacity int) *tickState {
	return &tickState{
		devices:  devices,
		fill:     fill,
		table:    newTable(devices, capacity),
		last:     make([]Slot, devices),
		reported: make([]bool, devices),
	}
}

func (s *tickState) tick(counter uint8, hits []*imu.RawSample) {
	row := Row{
		Counter: counter,
		Slots:   make([]Slot, s.devices),
	}

	var n int
	for d, hit := range hits {
		if hit == nil {
			continue
		}
		n++

		row.Slots[d] = Slot{
			State:   SlotPresent,
			Battery: hit.Battery,
			Signal:  hit.Signal,
		}
		s.last[d] = row.Slots[d]
		s.reported[d] = true

		if row.Timestamp.IsZero() || hit.Timestamp.Before(row.Timestamp) {
			row.Timestamp = hit.Timestamp
		}
	}

	switch {
	case n == 0:
		s.empty++
		if s.fill == FillAbsent {
			s.fills += s.devices
		}

	case n < s.devices:
		for d, hit := range hits {
			if hit != nil {
				continue
			}
			s.fills++
			if s.fill == FillHoldLast {
				row.Slots[d] = s.held(d)
			}
		}
	}

	s.table.append(row)
}

func (s *tickState) held(device int) Slot {
	if !s.reported[device] {
		return Slot{State: SlotHeld}
	}
	slot := s.last[device]
	slot.State = SlotHeld
	return slot
}

func (s *tickState) result(start uint8) *Result {
	return &Result{
		Table:        s.table,
		Policy:       s.fill,
		StartCounter: start,
		FillCount:    s.fills,
		EmptyCount:   s.empty,
	}
}
