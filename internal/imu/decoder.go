package imu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	dataLinePrefix = "["
	fieldSeparator = ","
	invalidCheck   = "FF"

	fieldDevice    = 0
	fieldBattery   = 1
	fieldCheck     = 2
	fieldCounter   = 3
	fieldPayload   = 4
	fieldTimestamp = 8
	numFields      = 9

	maxLineSize = 1024 * 1024
)

var (
	// ErrInvalidRecord is returned for records flagged invalid by their check byte
	ErrInvalidRecord = errors.New("record flagged invalid")

	// ErrMalformedRecord is returned for records that cannot be parsed
	ErrMalformedRecord = errors.New("malformed record")
)

// Log is the decoded content of one raw log
type Log struct {
	Devices int
	Streams []DeviceStream

	Lines     int // Data lines seen after the preamble
	Decoded   int // Records accepted into a stream
	Invalid   int // Records dropped because of the check byte
	Malformed int // Records dropped because they could not be parsed
	Foreign   int // Records whose device id is outside 1..Devices
}

// Stream returns the stream of the given device id
func (l *Log) Stream(device int) DeviceStream {
	return l.Streams[device-1]
}

// Seen returns the number of devices that contributed at least one record
func (l *Log) Seen() int {
	var n int
	for _, s := range l.Streams {
		if s.Len() > 0 {
			n++
		}
	}
	return n
}

// ParseLine decodes one bracketed data line:
//
//	[IMUID],[BATTERY],[CHECK],[NTH],[b1],[b2],[b3],[b4],TIMESTAMP
//
// It returns ErrInvalidRecord when the check byte is FF and ErrMalformedRecord
// when a field cannot be parsed.
func ParseLine(line string) (RawSample, error) {
	line = strings.NewReplacer("[", "", "]", "").Replace(line)
	fields := strings.Split(line, fieldSeparator)
	if len(fields) < numFields {
		return RawSample{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedRecord, numFields, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	if strings.EqualFold(fields[fieldCheck], invalidCheck) {
		return RawSample{}, ErrInvalidRecord
	}

	device, err := parseHexByte(fields[fieldDevice])
	if err != nil {
		return RawSample{}, fmt.Errorf("%w: device id: %w", ErrMalformedRecord, err)
	}
	battery, err := parseHexByte(fields[fieldBattery])
	if err != nil {
		return RawSample{}, fmt.Errorf("%w: battery: %w", ErrMalformedRecord, err)
	}
	counter, err := parseHexByte(fields[fieldCounter])
	if err != nil {
		return RawSample{}, fmt.Errorf("%w: counter: %w", ErrMalformedRecord, err)
	}

	sample := RawSample{
		Device:    int(device),
		Battery:   battery,
		Counter:   counter,
		Timestamp: Timestamp(fields[fieldTimestamp]),
	}
	for i := 0; i < NumSignals; i++ {
		b, err := parseHexByte(fields[fieldPayload+i])
		if err != nil {
			return RawSample{}, fmt.Errorf("%w: payload byte %d: %w", ErrMalformedRecord, i+1, err)
		}
		sample.Signal[i] = DecodeSignal(b)
	}
	if sample.Timestamp.IsZero() {
		return RawSample{}, fmt.Errorf("%w: empty timestamp", ErrMalformedRecord)
	}

	return sample, nil
}

func parseHexByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// ReadLog decodes a raw log into one stream per configured device. Preamble
// lines before the first data line are ignored; invalid and malformed records
// are skipped and only counted.
func ReadLog(r io.Reader, devices int) (*Log, error) {
	if devices <= 0 {
		return nil, NewError(KindDeviceMismatch, fmt.Sprintf("invalid device count %d", devices))
	}

	log := Log{Devices: devices}
	var samples []RawSample
	var inData bool

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if !inData {
			if !strings.HasPrefix(scanner.Text(), dataLinePrefix) {
				continue
			}
			inData = true
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		log.Lines++

		sample, err := ParseLine(line)
		switch {
		case errors.Is(err, ErrInvalidRecord):
			log.Invalid++
			continue
		case err != nil:
			log.Malformed++
			continue
		}

		if sample.Device < 1 || sample.Device > devices {
			log.Foreign++
			continue
		}

		samples = append(samples, sample)
		log.Decoded++
	}
	if err := scanner.Err(); err != nil {
		return nil, WrapError(KindIO, "reading log", err)
	}
	if !inData {
		return nil, NewError(KindNoData, "no data line found")
	}

	log.Streams = BuildStreams(samples, devices)
	return &log, nil
}
