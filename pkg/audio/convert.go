package audio

import (
	"encoding/base64"
	"fmt"
	"math"
)

// FloatToPCM16 converts floating-point samples to little-endian 16-bit PCM.
// Samples are clamped to [-1, 1] before conversion, so out-of-range input
// never produces wraparound artifacts. Positive samples scale by 32767 and
// negative samples by 32768, matching the asymmetric int16 range.
func FloatToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// PCM16ToFloat converts little-endian 16-bit PCM to floating-point samples
// in [-1, 1). A trailing odd byte is ignored.
func PCM16ToFloat(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := range n {
		v := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(v) / 32768.0
	}
	return out
}

// EncodeTransport encodes raw PCM bytes as base64 text for transmission over
// the JSON message channel.
func EncodeTransport(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// DecodeTransport reverses [EncodeTransport]. The round-trip is exact for any
// input, including empty.
func DecodeTransport(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("audio: decode transport: %w", err)
	}
	return data, nil
}

// Resample downsamples floating-point audio from fromRate to toRate using
// block averaging: each output sample is the arithmetic mean of the input
// window it covers. Averaging acts as a crude low-pass filter, which keeps
// speech intelligible when collapsing 48 kHz hardware audio down to the
// model's 16 kHz input rate.
//
// When the rates are equal the input is returned unchanged. Upsampling is
// not supported and returns an error.
func Resample(samples []float32, fromRate, toRate int) ([]float32, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("audio: resample: invalid rates %d -> %d", fromRate, toRate)
	}
	if toRate == fromRate {
		return samples, nil
	}
	if toRate > fromRate {
		return nil, fmt.Errorf("audio: resample: cannot upsample %d -> %d", fromRate, toRate)
	}

	ratio := float64(fromRate) / float64(toRate)
	out := make([]float32, int(math.Round(float64(len(samples))/ratio)))

	srcStart := 0
	for i := range out {
		srcEnd := int(math.Round(float64(i+1) * ratio))
		var sum float64
		count := 0
		for j := srcStart; j < srcEnd && j < len(samples); j++ {
			sum += float64(samples[j])
			count++
		}
		if count > 0 {
			out[i] = float32(sum / float64(count))
		}
		srcStart = srcEnd
	}
	return out, nil
}
