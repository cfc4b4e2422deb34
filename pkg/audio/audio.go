// Package audio provides the minimal audio plumbing the pipeline boundary
// needs: RIFF/WAV decoding and encoding, stereo→mono downmix, and linear
// interpolation resampling of 16-bit PCM.
//
// The phoneme recogniser expects 16 kHz mono 16-bit PCM. Uploaded clips
// arrive as WAV files in whatever format the recording device produced;
// [DecodeWAV], [PCM.Mono], and [Resample] bring them into shape. Anything
// that is not PCM16 inside a RIFF container is rejected with
// [ErrUnsupportedFormat] — container transcoding is out of scope.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// TargetSampleRate is the sample rate the phoneme recogniser expects.
const TargetSampleRate = 16000

// ErrUnsupportedFormat is wrapped by every decode failure caused by the
// input not being a 16-bit PCM RIFF/WAV file. Callers should treat it as a
// request error.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// PCM is a buffer of interleaved 16-bit signed little-endian PCM samples
// together with its format.
type PCM struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// Duration returns the audio duration in milliseconds, or 0 for an invalid
// format.
func (p PCM) Duration() int {
	if p.SampleRate <= 0 || p.Channels <= 0 {
		return 0
	}
	return len(p.Data) * 1000 / (p.SampleRate * p.Channels * 2)
}

// DecodeWAV parses a RIFF/WAV byte buffer and returns its PCM payload.
// Only uncompressed 16-bit PCM is accepted; unknown chunks are skipped.
func DecodeWAV(b []byte) (PCM, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return PCM{}, fmt.Errorf("%w: not a RIFF/WAVE file", ErrUnsupportedFormat)
	}

	var (
		pcm      PCM
		fmtSeen  bool
		dataSeen bool
	)

	off := 12
	for off+8 <= len(b) {
		chunkID := string(b[off : off+4])
		chunkSize := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		if body+chunkSize > len(b) {
			chunkSize = len(b) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return PCM{}, fmt.Errorf("%w: fmt chunk too short", ErrUnsupportedFormat)
			}
			audioFormat := binary.LittleEndian.Uint16(b[body : body+2])
			if audioFormat != 1 {
				return PCM{}, fmt.Errorf("%w: audio format %d (only PCM=1 supported)", ErrUnsupportedFormat, audioFormat)
			}
			pcm.Channels = int(binary.LittleEndian.Uint16(b[body+2 : body+4]))
			pcm.SampleRate = int(binary.LittleEndian.Uint32(b[body+4 : body+8]))
			bits := binary.LittleEndian.Uint16(b[body+14 : body+16])
			if bits != 16 {
				return PCM{}, fmt.Errorf("%w: %d bits per sample (only 16 supported)", ErrUnsupportedFormat, bits)
			}
			fmtSeen = true

		case "data":
			if !fmtSeen {
				return PCM{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrUnsupportedFormat)
			}
			pcm.Data = b[body : body+chunkSize]
			dataSeen = true
		}

		if fmtSeen && dataSeen {
			break
		}

		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			chunkSize++
		}
		off = body + chunkSize
	}

	if !fmtSeen {
		return PCM{}, fmt.Errorf("%w: missing fmt chunk", ErrUnsupportedFormat)
	}
	if !dataSeen {
		return PCM{}, fmt.Errorf("%w: missing data chunk", ErrUnsupportedFormat)
	}
	if pcm.Channels < 1 || pcm.Channels > 2 {
		return PCM{}, fmt.Errorf("%w: %d channels (only mono and stereo supported)", ErrUnsupportedFormat, pcm.Channels)
	}
	if pcm.SampleRate <= 0 {
		return PCM{}, fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, pcm.SampleRate)
	}
	return pcm, nil
}

// EncodeWAV wraps p in a standard RIFF/WAV container suitable for a
// multipart upload to a model server.
func EncodeWAV(p PCM) []byte {
	const bitsPerSample = 16
	byteRate := p.SampleRate * p.Channels * bitsPerSample / 8
	blockAlign := p.Channels * bitsPerSample / 8
	dataSize := len(p.Data)

	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(p.Channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(p.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], p.Data)

	return buf
}
