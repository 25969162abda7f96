package audio

import (
	"math"
	"sync"
	"time"
)

// VAD implements voice activity detection using RMS energy analysis over
// 16-bit PCM frames.
type VAD struct {
	config *VADConfig
	mu     sync.RWMutex

	// State
	isActive   bool
	lastActive time.Time

	// Smoothing
	energyHistory []float64
	historyIndex  int
}

// VADConfig holds VAD configuration.
type VADConfig struct {
	Threshold       float64 `json:"threshold"`        // Energy threshold (0-1), default 0.01
	SmoothingFrames int     `json:"smoothing_frames"` // Number of frames to smooth, default 5
	MaxSilenceMs    int     `json:"max_silence_ms"`   // Max silence before end, default 500
}

// DefaultVADConfig returns sensible defaults.
func DefaultVADConfig() *VADConfig {
	return &VADConfig{
		Threshold:       0.01, // RMS threshold
		SmoothingFrames: 5,
		MaxSilenceMs:    500,
	}
}

// VADResult is the per-frame detection outcome.
type VADResult struct {
	IsSpeech   bool    `json:"is_speech"`
	Confidence float64 `json:"confidence"`
	RMS        float64 `json:"rms"`
}

// NewVAD creates a new VAD instance.
func NewVAD(config *VADConfig) *VAD {
	if config == nil {
		config = DefaultVADConfig()
	}

	return &VAD{
		config:        config,
		energyHistory: make([]float64, config.SmoothingFrames),
	}
}

// Process analyzes one capture frame and returns the detection result.
// A speech segment stays active through silences shorter than MaxSilenceMs,
// so natural pauses do not split an utterance.
func (v *VAD) Process(frame []int16) *VADResult {
	v.mu.Lock()
	defer v.mu.Unlock()

	rms := calculateRMS(frame)

	// Update smoothing history
	v.energyHistory[v.historyIndex] = rms
	v.historyIndex = (v.historyIndex + 1) % len(v.energyHistory)

	smoothedRMS := v.smoothedRMS()
	isSpeech := smoothedRMS >= v.config.Threshold

	if isSpeech {
		v.isActive = true
		v.lastActive = time.Now()
	} else if v.isActive {
		silenceDuration := time.Since(v.lastActive)
		if silenceDuration > time.Duration(v.config.MaxSilenceMs)*time.Millisecond {
			v.isActive = false
		} else {
			// Still in speech segment (within silence tolerance)
			isSpeech = true
		}
	}

	// Confidence scales with distance from the threshold
	var confidence float64
	if isSpeech {
		confidence = math.Min(1.0, 0.5+(smoothedRMS-v.config.Threshold)*10)
	} else {
		confidence = math.Max(0.0, 0.5-(v.config.Threshold-smoothedRMS)*10)
	}

	return &VADResult{
		IsSpeech:   isSpeech,
		Confidence: confidence,
		RMS:        smoothedRMS,
	}
}

// calculateRMS computes root mean square energy of a 16-bit PCM frame,
// normalized to 0-1.
func calculateRMS(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}

	var sum float64
	for _, sample := range frame {
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// smoothedRMS returns the average RMS over the history window.
func (v *VAD) smoothedRMS() float64 {
	var sum float64
	for _, e := range v.energyHistory {
		sum += e
	}
	return sum / float64(len(v.energyHistory))
}

// IsActive returns whether speech is currently detected.
func (v *VAD) IsActive() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.isActive
}

// Reset clears VAD state between capture sessions.
func (v *VAD) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.isActive = false
	v.historyIndex = 0
	for i := range v.energyHistory {
		v.energyHistory[i] = 0
	}
}
