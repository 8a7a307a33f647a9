package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWAVHeader(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	data, err := EncodeWAV(pcm, 16000, 1)
	require.NoError(t, err)
	require.Len(t, data, 44+len(pcm))

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(data[34:36]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(data[40:44]))
	assert.Equal(t, pcm, data[44:])
}

func TestDecodeWAVRoundTrip(t *testing.T) {
	pcm := make([]byte, 3200)
	for i := range pcm {
		pcm[i] = byte(i % 251)
	}

	encoded, err := EncodeWAV(pcm, 44100, 2)
	require.NoError(t, err)

	decoded, rate, channels, err := DecodeWAV(encoded)
	require.NoError(t, err)
	assert.Equal(t, pcm, decoded)
	assert.Equal(t, 44100, rate)
	assert.Equal(t, 2, channels)
}

func TestEncodeWAVRejectsBadInput(t *testing.T) {
	_, err := EncodeWAV(nil, 16000, 1)
	assert.Error(t, err)

	_, err = EncodeWAV([]byte{0x01}, 0, 1)
	assert.Error(t, err)

	_, err = EncodeWAV([]byte{0x01}, 16000, 0)
	assert.Error(t, err)
}

func TestDecodeWAVRejectsBadInput(t *testing.T) {
	_, _, _, err := DecodeWAV([]byte("too short"))
	assert.Error(t, err)

	garbage := make([]byte, 64)
	copy(garbage, "NOTARIFFHEADER")
	_, _, _, err = DecodeWAV(garbage)
	assert.Error(t, err)
}

func TestDecodeWAVRejectsNonPCM(t *testing.T) {
	data, err := EncodeWAV([]byte{0x01, 0x02}, 8000, 1)
	require.NoError(t, err)

	// Flip the audio format field to IEEE float.
	binary.LittleEndian.PutUint16(data[20:22], 3)
	_, _, _, err = DecodeWAV(data)
	assert.Error(t, err)
}
