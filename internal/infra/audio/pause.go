package audio

import "time"

// PauseDetector decides when a speaker has stopped talking. A pause is a run of
// silent samples at least as long as the threshold, after some voice was heard.
type PauseDetector struct {
	amplitude    int16
	pauseSamples int
	silent       int
	heardVoice   bool
}

func NewPauseDetector(amplitude int16, pause time.Duration, sampleRate int) *PauseDetector {
	return &PauseDetector{
		amplitude:    amplitude,
		pauseSamples: int(pause.Seconds() * float64(sampleRate)),
	}
}

// Observe feeds one frame and reports whether the pause has been reached.
func (d *PauseDetector) Observe(frame []int16) bool {
	if isSilent(frame, d.amplitude) {
		d.silent += len(frame)
	} else {
		d.silent = 0
		d.heardVoice = true
	}
	return d.heardVoice && d.silent >= d.pauseSamples
}

func isSilent(frame []int16, amplitude int16) bool {
	for _, sample := range frame {
		if sample > amplitude || sample < -amplitude {
			return false
		}
	}
	return true
}
