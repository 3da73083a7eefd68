package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/attitude.report/internal/api"
	"github.com/banshee-data/attitude.report/internal/config"
	"github.com/banshee-data/attitude.report/internal/ekf"
	"github.com/banshee-data/attitude.report/internal/flightdb"
	"github.com/banshee-data/attitude.report/internal/sensorio"
	"github.com/banshee-data/attitude.report/internal/serialmux"
	"github.com/banshee-data/attitude.report/internal/timeutil"
)

var (
	devMode          = flag.Bool("dev", false, "Run in dev mode (mock serial bridge)")
	listen           = flag.String("listen", ":8080", "HTTP listen address")
	udpAddr          = flag.String("udp", ":14550", "UDP listen address for sensor frames")
	serialPath       = flag.String("serial", "", "Serial sensor bridge device path (empty disables)")
	serialBaud       = flag.Int("baud", 57600, "Serial bridge baud rate")
	dbFile           = flag.String("db", "flight.db", "Flight database path (empty disables recording)")
	configPath       = flag.String("config", "", "Tuning overlay JSON (empty uses defaults)")
	snapshotInterval = flag.Duration("snapshot-interval", time.Second, "Flight recorder snapshot interval")
	sessionNotes     = flag.String("notes", "", "Notes attached to the recording session")
)

// mockBridgeFixture stands in for the serial sensor bridge in dev mode.
const mockBridgeFixture = "$BARO,0,488.2\n"

// lockedEstimator serialises access to the facade, which has no internal
// locking. The UDP listener, the serial subscriber and the HTTP handlers all
// reach the estimator through this wrapper.
type lockedEstimator struct {
	mu  sync.Mutex
	est *ekf.Estimator
}

func (l *lockedEstimator) SetIMUData(timeUS, deltaAngDTus, deltaVelDTus uint64, deltaAng, deltaVel [3]float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.est.SetIMUData(timeUS, deltaAngDTus, deltaVelDTus, deltaAng, deltaVel)
}

func (l *lockedEstimator) SetMagData(timeUS uint64, mag [3]float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.est.SetMagData(timeUS, mag)
}

func (l *lockedEstimator) SetGpsData(timeUS uint64, gps *ekf.GpsMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.est.SetGpsData(timeUS, gps)
}

func (l *lockedEstimator) SetBaroData(timeUS uint64, hgt float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.est.SetBaroData(timeUS, hgt)
}

func (l *lockedEstimator) SetAirspeedData(timeUS uint64, trueAirspeed, eas2tas float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.est.SetAirspeedData(timeUS, trueAirspeed, eas2tas)
}

func (l *lockedEstimator) SetRangeData(timeUS uint64, rng float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.est.SetRangeData(timeUS, rng)
}

func (l *lockedEstimator) SetOpticalFlowData(timeUS uint64, flow *ekf.FlowMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.est.SetOpticalFlowData(timeUS, flow)
}

func (l *lockedEstimator) SetExtVisionData(timeUS uint64, ev *ekf.ExtVisionMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.est.SetExtVisionData(timeUS, ev)
}

func (l *lockedEstimator) SetAuxVelData(timeUS uint64, velNE, varNE [2]float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.est.SetAuxVelData(timeUS, velNE, varNE)
}

func (l *lockedEstimator) Status() ekf.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.est.Status()
}

func (l *lockedEstimator) Params() ekf.Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.est.Params()
}

func (l *lockedEstimator) Counters() ekf.Counters {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.est.Counters()
}

// handleSentence routes one serial bridge line into the estimator. Unknown
// sentences are ignored; the bridge shares the line with its own chatter.
func handleSentence(sink sensorio.Sink, line string) error {
	switch serialmux.ClassifySentence(line) {
	case serialmux.SentenceTypeGPS:
		gps, err := serialmux.ParseGPSSentence(line)
		if err != nil {
			return err
		}
		sink.SetGpsData(gps.TimeUS, gps)

	case serialmux.SentenceTypeAirspeed:
		as, err := serialmux.ParseAirspeedSentence(line)
		if err != nil {
			return err
		}
		sink.SetAirspeedData(as.TimeUS, as.TrueAirspeed, as.EAS2TAS)

	case serialmux.SentenceTypeBaro:
		baro, err := serialmux.ParseBaroSentence(line)
		if err != nil {
			return err
		}
		sink.SetBaroData(baro.TimeUS, baro.Height)
	}
	return nil
}

func loadParams(path string) ekf.Params {
	if path == "" {
		return ekf.DefaultParams()
	}
	cfg, err := config.LoadTuningConfig(path)
	if err != nil {
		log.Fatalf("Failed to load tuning config: %v", err)
	}
	return cfg.Params()
}

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	est := &lockedEstimator{est: ekf.NewEstimator(loadParams(*configPath))}

	var m serialmux.SerialMuxInterface
	switch {
	case *devMode:
		m = serialmux.NewMockSerialMux([]byte(mockBridgeFixture))
	case *serialPath != "":
		var err error
		m, err = serialmux.NewRealSerialMux(*serialPath, serialmux.PortOptions{BaudRate: *serialBaud})
		if err != nil {
			log.Fatalf("failed to open serial bridge: %v", err)
		}
	default:
		m = serialmux.NewDisabledSerialMux()
	}
	defer m.Close()

	var db *flightdb.FlightDB
	if *dbFile != "" {
		var err error
		db, err = flightdb.NewFlightDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open flight database: %v", err)
		}
		defer db.Close()
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// UDP sensor frame intake
	stats := &sensorio.FrameStats{}
	listener := sensorio.NewUDPListener(sensorio.UDPListenerConfig{
		Address:     *udpAddr,
		RcvBuf:      1 << 20,
		LogInterval: 30 * time.Second,
		Stats:       stats,
		Parser:      sensorio.NewParser(est),
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := listener.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("sensor listener stopped: %v", err)
		}
		log.Print("sensor listener routine terminated")
	}()

	// run the monitor routine to manage IO on the serial bridge
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial bridge: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// subscribe to serial bridge sentences and route them into the estimator
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := m.Subscribe()
		defer m.Unsubscribe(id)
		for {
			select {
			case line := <-c:
				if err := handleSentence(est, line); err != nil {
					log.Printf("error handling sentence: %v", err)
				}
			case <-ctx.Done():
				log.Printf("subscribe routine terminated")
				return
			}
		}
	}()

	// flight recorder
	if db != nil {
		rec := flightdb.NewRecorder(db, timeutil.RealClock{}, *snapshotInterval, est.Status)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rec.Run(ctx, *sessionNotes); err != nil && err != context.Canceled {
				log.Printf("flight recorder stopped: %v", err)
			}
			log.Print("flight recorder routine terminated")
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		apiMux := api.NewServer(est, db).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		server := &http.Server{
			Addr:    *listen,
			Handler: mux,
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
