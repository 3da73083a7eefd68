package sensorio

import "testing"

func TestFrameStatsGetAndReset(t *testing.T) {
	fs := NewFrameStats()
	fs.AddFrame(44)
	fs.AddFrame(24)
	fs.AddRejected()

	frames, bytes, rejected, duration := fs.GetAndReset()
	if frames != 2 || bytes != 68 || rejected != 1 {
		t.Errorf("got frames=%d bytes=%d rejected=%d", frames, bytes, rejected)
	}
	if duration <= 0 {
		t.Errorf("duration = %v", duration)
	}

	frames, bytes, rejected, _ = fs.GetAndReset()
	if frames != 0 || bytes != 0 || rejected != 0 {
		t.Errorf("counters not reset: frames=%d bytes=%d rejected=%d", frames, bytes, rejected)
	}
}
