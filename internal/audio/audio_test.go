package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// makeWAV builds a minimal valid WAV file from parameters for testing.
func makeWAV(sampleRate uint32, numChannels uint16, bitDepth uint16, numSamples int) []byte {
	blockAlign := numChannels * bitDepth / 8
	byteRate := sampleRate * uint32(blockAlign)
	dataSize := uint32(numSamples) * uint32(blockAlign)
	riffSize := 4 + (8 + 16) + (8 + dataSize)

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(riffSize))
	buf.WriteString("WAVE")

	// fmt chunk
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16)) // chunk size
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM
	_ = binary.Write(buf, binary.LittleEndian, numChannels)
	_ = binary.Write(buf, binary.LittleEndian, sampleRate)
	_ = binary.Write(buf, binary.LittleEndian, byteRate)
	_ = binary.Write(buf, binary.LittleEndian, blockAlign)
	_ = binary.Write(buf, binary.LittleEndian, bitDepth)

	// data chunk
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, dataSize)
	for range numSamples {
		_ = binary.Write(buf, binary.LittleEndian, int16(0))
	}

	return buf.Bytes()
}

func TestDecodeWAV(t *testing.T) {
	t.Run("decodes valid 24kHz mono 16-bit WAV", func(t *testing.T) {
		wavBytes := makeWAV(24000, 1, 16, 100)
		samples, rate, err := DecodeWAV(wavBytes)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(samples) != 100 {
			t.Errorf("want 100 samples, got %d", len(samples))
		}
		if rate != 24000 {
			t.Errorf("want rate 24000, got %d", rate)
		}
	})

	t.Run("reports non-default sample rate", func(t *testing.T) {
		wavBytes := makeWAV(16000, 1, 16, 10)
		_, rate, err := DecodeWAV(wavBytes)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rate != 16000 {
			t.Errorf("want rate 16000, got %d", rate)
		}
	})

	t.Run("rejects stereo input", func(t *testing.T) {
		wavBytes := makeWAV(24000, 2, 16, 10)
		_, _, err := DecodeWAV(wavBytes)
		if err == nil {
			t.Fatal("want error for stereo input, got nil")
		}
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, _, err := DecodeWAV(nil)
		if err == nil {
			t.Fatal("want error for empty input, got nil")
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, _, err := DecodeWAV([]byte("definitely not a wav"))
		if err == nil {
			t.Fatal("want error for garbage input, got nil")
		}
	})
}

func TestEncodeWAVRoundTrip(t *testing.T) {
	samples := make([]float32, 240)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / float64(DefaultSampleRate)))
	}

	encoded, err := EncodeWAV(samples, DefaultSampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	decoded, rate, err := DecodeWAV(encoded)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}

	if rate != DefaultSampleRate {
		t.Errorf("want rate %d, got %d", DefaultSampleRate, rate)
	}

	if len(decoded) != len(samples) {
		t.Fatalf("want %d samples back, got %d", len(samples), len(decoded))
	}

	// 16-bit quantization allows small error.
	for i := range samples {
		if diff := math.Abs(float64(samples[i] - decoded[i])); diff > 1.0/32000 {
			t.Fatalf("sample %d differs by %f", i, diff)
		}
	}
}

func TestEncodeWAVRejectsBadRate(t *testing.T) {
	_, err := EncodeWAV([]float32{0}, 0)
	if err == nil {
		t.Fatal("want error for zero sample rate, got nil")
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    Format
		wantErr bool
	}{
		{"wav", makeWAV(24000, 1, 16, 4), FormatWAV, false},
		{"flac", []byte("fLaC\x00\x00\x00\x22"), FormatFLAC, false},
		{"ogg", []byte("OggS\x00\x02rest"), FormatOGG, false},
		{"mp3 id3", []byte("ID3\x04\x00\x00\x00"), FormatMP3, false},
		{"mp3 frame sync", []byte{0xFF, 0xFB, 0x90, 0x00}, FormatMP3, false},
		{"too short", []byte("RI"), "", true},
		{"unknown", []byte("GIF89a"), "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Sniff(tc.data)
			if tc.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Fatalf("want ErrUnknownFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("want %q, got %q", tc.want, got)
			}
		})
	}
}
