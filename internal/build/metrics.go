package build

import (
	"sync"
	"time"
)

// BuildMetrics counts passes.
type BuildMetrics struct {
	TotalPasses      int64
	SuccessfulPasses int64
	FailedPasses     int64
	AverageDuration  time.Duration
	TotalDuration    time.Duration
	LastDuration     time.Duration
	mutex            sync.RWMutex
}

// NewBuildMetrics creates a new metrics tracker
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{}
}

// RecordPass records the outcome of one pass.
func (bm *BuildMetrics) RecordPass(d time.Duration, err error) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.TotalPasses++
	bm.TotalDuration += d
	bm.LastDuration = d

	if err != nil {
		bm.FailedPasses++
	} else {
		bm.SuccessfulPasses++
	}

	bm.AverageDuration = bm.TotalDuration / time.Duration(bm.TotalPasses)
}

// GetSnapshot returns a snapshot of current metrics
func (bm *BuildMetrics) GetSnapshot() BuildMetrics {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()
	return BuildMetrics{
		TotalPasses:      bm.TotalPasses,
		SuccessfulPasses: bm.SuccessfulPasses,
		FailedPasses:     bm.FailedPasses,
		AverageDuration:  bm.AverageDuration,
		TotalDuration:    bm.TotalDuration,
		LastDuration:     bm.LastDuration,
	}
}

// Reset resets all metrics
func (bm *BuildMetrics) Reset() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.TotalPasses = 0
	bm.SuccessfulPasses = 0
	bm.FailedPasses = 0
	bm.AverageDuration = 0
	bm.TotalDuration = 0
	bm.LastDuration = 0
}

// GetSuccessRate returns the success rate as a percentage
func (bm *BuildMetrics) GetSuccessRate() float64 {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	if bm.TotalPasses == 0 {
		return 0.0
	}

	return float64(bm.SuccessfulPasses) / float64(bm.TotalPasses) * 100.0
}
