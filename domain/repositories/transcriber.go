package repositories

import (
	"context"

	"github.com/happypartner/voicelink/domain"
)

// Transcriber abstracts speech recognition services.
//
// Implementations perform a single request and never retry. A result
// with Success == false means the service returned empty text; callers
// must not proceed to chat dispatch with empty content.
type Transcriber interface {
	Transcribe(ctx context.Context, rec domain.Recording) (domain.TranscriptionResult, error)
}
