package audio

import (
	"bytes"
	"errors"
)

// Format identifies an audio container recognized for reference uploads.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
	FormatOGG  Format = "ogg"
)

// ErrUnknownFormat is returned when payload bytes match no accepted container.
var ErrUnknownFormat = errors.New("unrecognized audio container")

// Sniff inspects the leading bytes of a payload and reports which accepted
// audio container it is. It checks magic numbers only; a positive result does
// not guarantee the stream decodes cleanly.
func Sniff(data []byte) (Format, error) {
	if len(data) < 4 {
		return "", ErrUnknownFormat
	}

	switch {
	case len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV, nil
	case bytes.Equal(data[0:4], []byte("fLaC")):
		return FormatFLAC, nil
	case bytes.Equal(data[0:4], []byte("OggS")):
		return FormatOGG, nil
	case bytes.Equal(data[0:3], []byte("ID3")):
		return FormatMP3, nil
	case data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// Raw MPEG audio frame sync.
		return FormatMP3, nil
	default:
		return "", ErrUnknownFormat
	}
}
