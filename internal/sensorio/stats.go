package sensorio

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/attitude.report/internal/monitoring"
)

// FrameStats tracks frame throughput with thread-safe operations.
type FrameStats struct {
	mu         sync.Mutex
	frameCount int64
	byteCount  int64
	rejected   int64
	lastReset  time.Time
}

// NewFrameStats creates a new FrameStats instance.
func NewFrameStats() *FrameStats {
	return &FrameStats{lastReset: time.Now()}
}

// AddFrame increments the frame and byte counts.
func (fs *FrameStats) AddFrame(bytes int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.frameCount++
	fs.byteCount += int64(bytes)
}

// AddRejected increments the rejected frame count.
func (fs *FrameStats) AddRejected() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.rejected++
}

// GetAndReset returns current stats and resets the counters.
func (fs *FrameStats) GetAndReset() (frames, bytes, rejected int64, duration time.Duration) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	now := time.Now()
	duration = now.Sub(fs.lastReset)
	frames = fs.frameCount
	bytes = fs.byteCount
	rejected = fs.rejected

	fs.frameCount = 0
	fs.byteCount = 0
	fs.rejected = 0
	fs.lastReset = now

	return
}

// LogStats logs formatted throughput statistics through the monitoring log.
func (fs *FrameStats) LogStats() {
	frames, bytes, rejected, duration := fs.GetAndReset()
	if frames == 0 && rejected == 0 {
		return
	}

	framesPerSec := float64(frames) / duration.Seconds()
	kbPerSec := float64(bytes) / duration.Seconds() / 1024

	logMsg := fmt.Sprintf("Sensor stats (/sec): %.1f frames, %.1f KB", framesPerSec, kbPerSec)
	if rejected > 0 {
		logMsg += fmt.Sprintf(", %d rejected", rejected)
	}
	monitoring.Logf("%s", logMsg)
}
