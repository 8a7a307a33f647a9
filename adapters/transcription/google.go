package transcription

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/happypartner/voicelink/audio"
	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/domain/repositories"
)

// Google transcribes recordings with Google Cloud Speech-to-Text
// instead of the backend service. Selected via the transcription
// provider setting; credentials come from the usual Google application
// default credentials.
type Google struct {
	language   string
	sampleRate int
	logger     *zap.Logger
}

var _ repositories.Transcriber = (*Google)(nil)

// NewGoogle creates a Google Cloud transcriber. Language defaults to
// zh-CN, matching the assistant's audience.
func NewGoogle(language string, sampleRate int, logger *zap.Logger) *Google {
	if language == "" {
		language = "zh-CN"
	}
	return &Google{
		language:   language,
		sampleRate: sampleRate,
		logger:     logger,
	}
}

// Transcribe sends the whole recording in one Recognize call.
func (g *Google) Transcribe(ctx context.Context, rec domain.Recording) (domain.TranscriptionResult, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("failed to create speech client: %w", err)
	}
	defer client.Close()

	encoding, err := recognitionEncoding(rec.Encoding)
	if err != nil {
		return domain.TranscriptionResult{}, err
	}

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: int32(g.sampleRate),
			LanguageCode:    g.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: rec.Data},
		},
	})
	if err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("recognize request failed: %w", err)
	}

	var text string
	var confidence float64
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		best := result.Alternatives[0]
		text += best.Transcript
		if float64(best.Confidence) > confidence {
			confidence = float64(best.Confidence)
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		g.logger.Info("no speech detected in recording")
		return domain.TranscriptionResult{Success: false}, nil
	}

	return domain.TranscriptionResult{
		Text:       text,
		Success:    true,
		Confidence: confidence,
		Language:   g.language,
	}, nil
}

// recognitionEncoding maps the negotiated MIME encoding to the Speech
// API enum.
func recognitionEncoding(mime string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch mime {
	case audio.MIMEWebMOpus, audio.MIMEWebM:
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	case audio.MIMEOggOpus:
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case audio.MIMEWAV:
		return speechpb.RecognitionConfig_LINEAR16, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported audio encoding: %s", mime)
	}
}
