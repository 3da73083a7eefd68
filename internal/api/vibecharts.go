package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// vibeChartHandler renders a quick line chart (HTML) of a session's recorded
// vibration metrics using go-echarts. This is a debugging-only endpoint to
// eyeball vibration levels without post-flight tooling.
// Query params:
//   - session_id (optional; defaults to the most recent session)
func (s *Server) vibeChartHandler(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, "Flight recorder not configured", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessions, err := s.db.Sessions(1)
		if err != nil || len(sessions) == 0 {
			http.Error(w, "No recorded sessions", http.StatusNotFound)
			return
		}
		sessionID = sessions[0].ID
	}

	snaps, err := s.db.Snapshots(sessionID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to query snapshots: %v", err), http.StatusInternalServerError)
		return
	}
	if len(snaps) == 0 {
		http.Error(w, "No snapshots for session", http.StatusNotFound)
		return
	}

	x := make([]string, 0, len(snaps))
	coning := make([]opts.LineData, 0, len(snaps))
	gyroHF := make([]opts.LineData, 0, len(snaps))
	accelHF := make([]opts.LineData, 0, len(snaps))
	for _, snap := range snaps {
		sec := int64(snap.WriteTimestamp)
		x = append(x, time.Unix(sec, 0).UTC().Format("15:04:05"))
		coning = append(coning, opts.LineData{Value: snap.Vibe[0]})
		gyroHF = append(gyroHF, opts.LineData{Value: snap.Vibe[1]})
		accelHF = append(accelHF, opts.LineData{Value: snap.Vibe[2]})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "IMU Vibration", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "IMU Vibration Metrics", Subtitle: fmt.Sprintf("session=%s samples=%d", sessionID, len(snaps))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "rad / m/s"}),
	)

	line.SetXAxis(x).
		AddSeries("coning", coning).
		AddSeries("gyro HF", gyroHF).
		AddSeries("accel HF", accelHF)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
