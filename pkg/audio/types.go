// Package audio defines the sample formats, conversion primitives, and device
// interfaces used by the Flex Translator audio pipeline.
//
// Audio flows through the pipeline in two fixed formats:
//
//   - Outbound (microphone → model): mono 16-bit PCM at [CaptureRate].
//   - Inbound (model → speakers): mono 16-bit PCM at [PlaybackRate].
//
// Hardware rarely runs at either rate natively, so captured samples are
// resampled before encoding. On the wire both directions are base64 text
// (see [EncodeTransport]) because the live API is a JSON message channel.
package audio

import "time"

const (
	// CaptureRate is the sample rate the model requires for microphone input.
	CaptureRate = 16000

	// PlaybackRate is the fixed sample rate of synthesized audio returned by
	// the model.
	PlaybackRate = 24000
)

// Duration returns the playback duration of n mono samples at the given rate.
func Duration(n, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(rate) * float64(time.Second))
}
