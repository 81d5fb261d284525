// Command vibewatch runs the vibration monitor: it polls a WTVB01-485
// sensor over Modbus-RTU, evaluates window features against adaptive
// thresholds, drives the status display line and serves the HTTP API.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ezraeffect/vibewatch/internal/alarm"
	"github.com/ezraeffect/vibewatch/internal/analysis"
	"github.com/ezraeffect/vibewatch/internal/api"
	"github.com/ezraeffect/vibewatch/internal/baseline"
	"github.com/ezraeffect/vibewatch/internal/config"
	"github.com/ezraeffect/vibewatch/internal/db"
	"github.com/ezraeffect/vibewatch/internal/display"
	"github.com/ezraeffect/vibewatch/internal/dsp"
	"github.com/ezraeffect/vibewatch/internal/sample"
	"github.com/ezraeffect/vibewatch/internal/sensor"
	"github.com/ezraeffect/vibewatch/internal/serialport"
	"github.com/ezraeffect/vibewatch/internal/version"
	"github.com/ezraeffect/vibewatch/internal/wtvb"
)

var (
	configPath = flag.String("config", "", "Path to JSON config file")
	devMode    = flag.Bool("dev", false, "Run against a simulated sensor instead of a serial port")
	serialPath = flag.String("port", "", "Serial port path (overrides config)")
	listen     = flag.String("listen", "", "HTTP listen address (overrides config)")
	dbPath     = flag.String("db", "", "SQLite database path (overrides config)")
)

// historyStore adapts the database to the analyzer's event sink.
type historyStore struct {
	db *db.DB
}

func (h historyStore) RecordAlarmEvent(ev analysis.StoreEvent) error {
	rec := db.AlarmEvent{
		OccurredAt: ev.OccurredAt,
		PrevState:  ev.PrevState.String(),
		NewState:   ev.NewState.String(),
	}
	if ev.Exceedance != nil {
		rec.Channel = ev.Exceedance.Channel
		rec.Value = ev.Exceedance.Value
		rec.Threshold = ev.Exceedance.Threshold
	}
	_, err := h.db.RecordAlarmEvent(rec)
	return err
}

func (h historyStore) RecordBaselineRun(res *baseline.Result) error {
	return h.db.RecordBaselineRun(res)
}

func (h historyStore) RecordFeatures(at time.Time, f dsp.WindowFeatures, state alarm.State) error {
	return h.db.RecordFeatures(at, f, state)
}

// simResponder answers Modbus read requests with a synthetic machine
// signature: a 23 Hz fundamental plus noise, so spectra and features look
// plausible in dev mode.
func simResponder() serialport.Responder {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Now()
	return func(request []byte) []byte {
		if len(request) < 8 || request[1] != wtvb.FuncReadRegisters {
			return nil
		}
		addr := request[0]
		reg := uint16(request[2])<<8 | uint16(request[3])
		count := uint16(request[4])<<8 | uint16(request[5])
		if reg != wtvb.PollStart || count != wtvb.PollCount {
			return nil
		}

		t := time.Since(start).Seconds()
		osc := math.Sin(2 * math.Pi * 23 * t)
		regs := make([]uint16, count)
		set := func(r uint16, v uint16) { regs[r-wtvb.PollStart] = v }

		// acceleration raw: g/16*32768; velocity raw: mm/s; disp raw: um
		accG := 0.3*osc + 0.02*rng.NormFloat64()
		set(wtvb.RegAccX, uint16(int16(accG/16.0*32768.0)))
		set(wtvb.RegAccY, uint16(int16(accG/32.0*32768.0)))
		set(wtvb.RegAccZ, uint16(int16(accG/64.0*32768.0)))
		vel := math.Abs(4*osc) + rng.Float64()
		set(wtvb.RegVelX, uint16(vel))
		set(wtvb.RegVelY, uint16(vel/2))
		set(wtvb.RegVelZ, uint16(vel/3))
		set(wtvb.RegTemp, uint16(2500+rng.Intn(50)))
		disp := math.Abs(30*osc) + rng.Float64()
		set(wtvb.RegDispX, uint16(disp))
		set(wtvb.RegDispY, uint16(disp/2))
		set(wtvb.RegDispZ, uint16(disp/3))
		set(wtvb.RegFreqX, 230)
		set(wtvb.RegFreqY, 230)
		set(wtvb.RegFreqZ, 230)

		return wtvb.BuildReadResponse(addr, regs)
	}
}

func main() {
	flag.Parse()
	log.Printf("vibewatch %s starting", version.String())

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}

	portPath := cfg.GetSerialPort()
	if *serialPath != "" {
		portPath = *serialPath
	}
	listenAddr := cfg.GetHTTPListen()
	if *listen != "" {
		listenAddr = *listen
	}
	databasePath := cfg.GetDBPath()
	if *dbPath != "" {
		databasePath = *dbPath
	}

	var port serialport.TimeoutPorter
	if *devMode {
		port = serialport.NewResponderPort(simResponder())
		log.Print("dev mode: using simulated sensor")
	} else {
		mode := serialport.DefaultMode()
		mode.BaudRate = cfg.GetBaudRate()
		p, err := serialport.Open(portPath, mode)
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", portPath, err)
		}
		port = p
	}
	defer port.Close()

	history, err := db.NewDB(databasePath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer history.Close()

	buf := sample.NewBuffer(cfg.GetBufferSize())
	reader := sensor.NewReader(port, buf, sensor.Config{
		SlaveID:         cfg.GetSlaveID(),
		PollInterval:    cfg.GetPollInterval(),
		ResponseTimeout: cfg.GetResponseTimeout(),
		DisconnectAfter: cfg.GetDisconnectAfter(),
	})

	engine := alarm.NewEngine(alarm.ThresholdSet{
		AccRMSMax:   cfg.GetAccRMSMax(),
		VelPeakMax:  cfg.GetVelPeakMax(),
		DispPeakMax: cfg.GetDispPeakMax(),
		TempMax:     cfg.GetTempMax(),
	})
	learner := baseline.NewLearner(buf, cfg.GetLearningDuration())

	var displayWriter io.Writer = io.Discard
	if dp := cfg.GetDisplayPort(); dp != "" {
		dport, err := serialport.Open(dp, serialport.DefaultMode())
		if err != nil {
			log.Fatalf("failed to open display port %s: %v", dp, err)
		}
		defer dport.Close()
		displayWriter = dport
	}
	emitter := display.NewEmitter(displayWriter)

	analyzer := analysis.NewAnalyzer(buf, reader, engine, learner, emitter, historyStore{history}, analysis.Config{
		SampleRate:  cfg.GetSampleRate(),
		AlarmWindow: cfg.GetAlarmWindow(),
		FFTWindow:   cfg.GetFFTWindow(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := reader.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("sensor reader stopped: %v", err)
		}
		log.Print("reader routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := analyzer.Loop(ctx, cfg.GetAnalysisInterval()); err != nil && err != context.Canceled {
			log.Printf("analyzer stopped: %v", err)
		}
		log.Print("analyzer routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(analyzer, engine, learner, reader, history).ServeMux()
		server := &http.Server{
			Addr:    listenAddr,
			Handler: mux,
		}

		go func() {
			log.Printf("HTTP API listening on %s", listenAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Print("vibewatch stopped")
}
