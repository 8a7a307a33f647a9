package repositories

import "context"

// CaptureSource abstracts a microphone capture device.
type CaptureSource interface {
	// Open acquires the device and starts delivering audio chunks.
	// The returned stream is exclusively owned by one recording
	// session and must be closed on every exit path.
	Open(ctx context.Context) (CaptureStream, error)

	// Supports reports whether the source can produce the given
	// encoding, for format negotiation at session start.
	Supports(encoding string) bool

	// SampleRate is the rate of the PCM chunks the source emits.
	SampleRate() int
}

// CaptureStream is one live microphone acquisition. Chunks is closed
// when the stream ends; Close stops the device and releases it.
type CaptureStream interface {
	Chunks() <-chan []byte
	Close() error
}
