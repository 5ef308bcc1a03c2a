package pionrtc

import (
	"context"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
)

// SampleSource produces encoded media for a local track.
type SampleSource interface {
	// NextSample blocks until a sample is ready or ctx is done.
	NextSample(ctx context.Context) (media.Sample, error)
}

// StaticSource emits the same payload at a fixed interval. It stands in for
// a capture device on servers and in tests.
type StaticSource struct {
	Data     []byte
	Interval time.Duration
}

// NewStaticSource creates a source emitting data every interval.
func NewStaticSource(data []byte, interval time.Duration) *StaticSource {
	return &StaticSource{Data: data, Interval: interval}
}

// NextSample implements SampleSource.
func (s *StaticSource) NextSample(ctx context.Context) (media.Sample, error) {
	timer := time.NewTimer(s.Interval)
	defer timer.Stop()
	select {
	case <-timer.C:
		return media.Sample{Data: s.Data, Duration: s.Interval}, nil
	case <-ctx.Done():
		return media.Sample{}, ctx.Err()
	}
}
