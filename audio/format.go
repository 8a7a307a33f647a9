package audio

import "strings"

// Audio encodings, in MIME form as the backend expects them.
const (
	MIMEWebMOpus = "audio/webm;codecs=opus"
	MIMEOggOpus  = "audio/ogg;codecs=opus"
	MIMEWebM     = "audio/webm"
	MIMEWAV      = "audio/wav"
	MIMEMP4      = "audio/mp4"
)

// PreferredEncodings is the fixed preference order used at session
// start. FallbackEncoding is used when the runtime supports none of
// them; negotiation always succeeds.
var PreferredEncodings = []string{
	MIMEWebMOpus,
	MIMEOggOpus,
	MIMEWebM,
	MIMEWAV,
	MIMEMP4,
}

const FallbackEncoding = MIMEWebMOpus

// NegotiateFormat returns the first encoding in preferred that the
// runtime supports, or FallbackEncoding if none match. Pure function.
func NegotiateFormat(preferred []string, supports func(string) bool) string {
	for _, enc := range preferred {
		if supports(enc) {
			return enc
		}
	}
	return FallbackEncoding
}

// FileExtension maps an encoding to the upload filename extension.
func FileExtension(encoding string) string {
	switch {
	case strings.Contains(encoding, "webm"):
		return "webm"
	case strings.Contains(encoding, "ogg"):
		return "ogg"
	case strings.Contains(encoding, "mp4"):
		return "mp4"
	default:
		return "wav"
	}
}
