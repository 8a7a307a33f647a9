package domain

import "time"

// Recording is a finished capture session: one encoded audio blob
// tagged with the encoding negotiated at session start.
type Recording struct {
	Encoding string
	Data     []byte
	Duration time.Duration
}

// TranscriptionResult is produced once per recording and consumed
// immediately by the chat dispatch trigger. Success is false when the
// service returned empty text or the request failed.
type TranscriptionResult struct {
	Text       string
	Success    bool
	Confidence float64
	Language   string
}

// Reply is the normalized shape the chat dispatcher presents to the
// conversation view, regardless of which backend agent answered.
type Reply struct {
	Content string
	Agent   AgentLabel
}

// Audio is a decoded synthesis payload ready for playback. It is
// transient and discarded after playback ends.
type Audio struct {
	Data       []byte
	Format     string
	SampleRate int
}
