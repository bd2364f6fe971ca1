package imu

// DeviceStream is the ordered sequence of samples reported by one device, in
// arrival order. Counters are expected, not verified, to be non-decreasing
// modulo the 256 wrap.
type DeviceStream struct {
	device  int
	samples []RawSample
}

// NewDeviceStream creates a stream for the given device id
func NewDeviceStream(device int, samples ...RawSample) DeviceStream {
	s := DeviceStream{device: device}
	for _, sample := range samples {
		s.append(sample)
	}
	return s
}

func (s *DeviceStream) append(sample RawSample) {
	s.samples = append(s.samples, sample)
}

// Device returns the device id of the stream
func (s DeviceStream) Device() int {
	return s.device
}

// Len returns the number of samples in the stream
func (s DeviceStream) Len() int {
	return len(s.samples)
}

// At returns the i-th sample in arrival order
func (s DeviceStream) At(i int) RawSample {
	return s.samples[i]
}

// Samples returns a copy of the stream contents
func (s DeviceStream) Samples() []RawSample {
	out := make([]RawSample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Filter returns a new stream holding the samples accepted by keep, in order
func (s DeviceStream) Filter(keep func(RawSample) bool) DeviceStream {
	out := DeviceStream{device: s.device}
	for _, sample := range s.samples {
		if keep(sample) {
			out.append(sample)
		}
	}
	return out
}

// BuildStreams groups samples by device id into exactly devices streams.
// Samples of unknown devices are dropped; devices that never reported get an
// empty stream.
func BuildStreams(samples []RawSample, devices int) []DeviceStream {
	streams := make([]DeviceStream, devices)
	for i := range streams {
		streams[i].device = i + 1
	}
	for _, sample := range samples {
		if sample.Device < 1 || sample.Device > devices {
			continue
		}
		streams[sample.Device-1].append(sample)
	}
	return streams
}
