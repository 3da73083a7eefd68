// Package main provides a post-flight vibration report tool.
// It reads recorded estimator snapshots from a flight database and prints
// summary statistics for the three IMU vibration metrics.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/attitude.report/internal/flightdb"
)

type metricSummary struct {
	Name string
	Mean float64
	P50  float64
	P95  float64
	Max  float64
}

func main() {
	dbPath := flag.String("db", "flight.db", "Path to flight database")
	sessionID := flag.String("session", "", "Session ID (default: most recent session)")
	listSessions := flag.Bool("list", false, "List recorded sessions and exit")
	flag.Parse()

	db, err := flightdb.NewFlightDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open flight database: %v", err)
	}
	defer db.Close()

	if *listSessions {
		printSessions(db)
		return
	}

	id := *sessionID
	if id == "" {
		sessions, err := db.Sessions(1)
		if err != nil {
			log.Fatalf("Failed to query sessions: %v", err)
		}
		if len(sessions) == 0 {
			fmt.Fprintln(os.Stderr, "No recorded sessions")
			os.Exit(1)
		}
		id = sessions[0].ID
	}

	snaps, err := db.Snapshots(id)
	if err != nil {
		log.Fatalf("Failed to query snapshots: %v", err)
	}
	if len(snaps) == 0 {
		fmt.Fprintf(os.Stderr, "No snapshots for session %s\n", id)
		os.Exit(1)
	}

	coning := make([]float64, len(snaps))
	gyroHF := make([]float64, len(snaps))
	accelHF := make([]float64, len(snaps))
	for i, snap := range snaps {
		coning[i] = float64(snap.Vibe[0])
		gyroHF[i] = float64(snap.Vibe[1])
		accelHF[i] = float64(snap.Vibe[2])
	}

	summaries := []metricSummary{
		summarise("coning (rad)", coning),
		summarise("gyro HF (rad)", gyroHF),
		summarise("accel HF (m/s)", accelHF),
	}

	duration := snaps[len(snaps)-1].WriteTimestamp - snaps[0].WriteTimestamp

	fmt.Printf("Session:   %s\n", id)
	fmt.Printf("Snapshots: %d over %s\n\n", len(snaps), time.Duration(duration*float64(time.Second)).Round(time.Second))
	fmt.Printf("%-16s %12s %12s %12s %12s\n", "metric", "mean", "p50", "p95", "max")
	for _, s := range summaries {
		fmt.Printf("%-16s %12.3e %12.3e %12.3e %12.3e\n", s.Name, s.Mean, s.P50, s.P95, s.Max)
	}
}

// summarise computes order statistics for one vibration metric. Quantile
// requires sorted input, so sort a copy rather than the caller's slice.
func summarise(name string, values []float64) metricSummary {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return metricSummary{
		Name: name,
		Mean: stat.Mean(sorted, nil),
		P50:  stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Max:  sorted[len(sorted)-1],
	}
}

func printSessions(db *flightdb.FlightDB) {
	sessions, err := db.Sessions(50)
	if err != nil {
		log.Fatalf("Failed to query sessions: %v", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No recorded sessions")
		return
	}

	fmt.Printf("%-36s %-20s %9s  %s\n", "session", "started", "snapshots", "notes")
	for _, s := range sessions {
		started := time.Unix(int64(s.StartTimestamp), 0).UTC().Format(time.RFC3339)
		fmt.Printf("%-36s %-20s %9d  %s\n", s.ID, started, s.SnapshotCount, s.Notes)
	}
}
