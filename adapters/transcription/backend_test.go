package transcription

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/happypartner/voicelink/audio"
	"github.com/happypartner/voicelink/domain"
)

func TestBackendTranscribe(t *testing.T) {
	var gotFilename, gotPartType, gotPreprocess string
	var gotData []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, transcribePath, r.URL.Path)

		reader, err := r.MultipartReader()
		require.NoError(t, err)
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			data, err := io.ReadAll(part)
			require.NoError(t, err)
			switch part.FormName() {
			case "file":
				gotFilename = part.FileName()
				gotPartType = part.Header.Get("Content-Type")
				gotData = data
			case "preprocess":
				gotPreprocess = string(data)
			}
		}

		json.NewEncoder(w).Encode(map[string]any{
			"text":       " what do pandas eat ",
			"confidence": 0.93,
			"duration":   2.4,
			"language":   "en",
		})
	}))
	defer server.Close()

	backend, err := NewBackend(BackendConfig{
		BaseURL:    server.URL,
		Preprocess: true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	result, err := backend.Transcribe(context.Background(), domain.Recording{
		Encoding: audio.MIMEWebMOpus,
		Data:     []byte{0x1a, 0x45, 0xdf, 0xa3},
		Duration: 2 * time.Second,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "what do pandas eat", result.Text)
	assert.InDelta(t, 0.93, result.Confidence, 0.001)
	assert.Equal(t, "en", result.Language)

	assert.True(t, strings.HasPrefix(gotFilename, "recording_"))
	assert.True(t, strings.HasSuffix(gotFilename, ".webm"))
	assert.Equal(t, audio.MIMEWebMOpus, gotPartType)
	assert.Equal(t, []byte{0x1a, 0x45, 0xdf, 0xa3}, gotData)
	assert.Equal(t, "true", gotPreprocess)
}

func TestBackendTranscribeEmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"text": "   "})
	}))
	defer server.Close()

	backend, err := NewBackend(BackendConfig{BaseURL: server.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)

	result, err := backend.Transcribe(context.Background(), domain.Recording{
		Encoding: audio.MIMEWAV,
		Data:     []byte{0x00},
	})

	// Silence is not an error, just an unsuccessful result.
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, result.Text)
}

func TestBackendTranscribeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "audio too large", http.StatusRequestEntityTooLarge)
	}))
	defer server.Close()

	backend, err := NewBackend(BackendConfig{BaseURL: server.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = backend.Transcribe(context.Background(), domain.Recording{
		Encoding: audio.MIMEWAV,
		Data:     []byte{0x00},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audio too large")
}
