package align_test

import (
	"fmt"

	"github.com/roman-kulish/imu-alignment/internal/imu"
)

// stream builds a device stream whose samples carry the given counters and a
// timestamp derived from the counter, 100ms apart, starting at 12:00:00.
func stream(device int, counters ...int) imu.DeviceStream {
	samples := make([]imu.RawSample, 0, len(counters))
	for _, c := range counters {
		samples = append(samples, sample(device, c, c))
	}
	return imu.NewDeviceStream(device, samples...)
}

// sample creates a sample at tick t, 100ms per tick after 12:00:00
func sample(device, counter, t int) imu.RawSample {
	ms := t * 100
	return imu.RawSample{
		Device:    device,
		Battery:   uint8(100 - device),
		Counter:   uint8(counter),
		Signal:    [imu.NumSignals]float64{float64(device) / 10, 0, 0, float64(counter%100) / 100},
		Timestamp: imu.Timestamp(fmt.Sprintf("01:02:12:%02d:%02d:%03d", ms/60000, (ms/1000)%60, ms%1000)),
	}
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for c := from; c <= to; c++ {
		out = append(out, c)
	}
	return out
}
