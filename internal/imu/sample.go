package imu

import "math"

const (
	// NumSignals is the number of quaternion components carried by every record
	NumSignals = 4

	// CounterModulo is the wrap point of the 8-bit per-sensor sample counter
	CounterModulo = 256

	// DefaultDevices is the number of IMUs in the reference deployment
	DefaultDevices = 3

	signalScale = 127
)

// RawSample is one sensor's report for one tick
type RawSample struct {
	Device    int                 // Sensor identity, 1..N
	Battery   uint8               // Raw battery telemetry
	Counter   uint8               // Sensor-local sequence number, wraps at 256
	Signal    [NumSignals]float64 // Normalized quaternion components, roughly [-1, 1]
	Timestamp Timestamp           // Sensor-local wall clock, not synchronized across sensors
}

// DecodeSignal reinterprets b as a signed 8-bit value and scales it by 1/127.
func DecodeSignal(b byte) float64 {
	return float64(int8(b)) / signalScale
}

// EncodeSignal is the inverse of DecodeSignal. Values outside the signed
// 8-bit range saturate.
func EncodeSignal(v float64) byte {
	n := math.Max(math.MinInt8, math.Min(math.MaxInt8, math.Round(v*signalScale)))
	return byte(int8(n))
}
