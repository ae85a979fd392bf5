package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/speed.report/internal/api"
	"github.com/banshee-data/speed.report/internal/camera"
	"github.com/banshee-data/speed.report/internal/config"
	"github.com/banshee-data/speed.report/internal/controller"
	"github.com/banshee-data/speed.report/internal/kld7"
	"github.com/banshee-data/speed.report/internal/monitoring"
	"github.com/banshee-data/speed.report/internal/serialmux"
	"github.com/banshee-data/speed.report/internal/units"
	"github.com/banshee-data/speed.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a JSON config file (default "+config.DefaultConfigPath+" when present)")
	devMode     = flag.Bool("dev", false, "Run against a simulated sensor")
	quiet       = flag.Bool("quiet", false, "Mute sensor and poll loop diagnostics")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

// loadConfig reads path, or the defaults file when path is empty and the
// file exists. With neither, every accessor falls back to its default.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			return &config.Config{}, nil
		}
		path = config.DefaultConfigPath
	}
	return config.Load(path)
}

// registerOverrides defines the flags that override config file values.
func registerOverrides(fs *flag.FlagSet) {
	fs.String("listen", config.DefaultListen, "Listen address")
	fs.String("port", config.DefaultDevice, "Serial port to use (ignored in dev mode)")
	fs.String("units", config.DefaultUnits, "Display units: "+units.GetValidUnitsString())
	fs.Float64("threshold", config.DefaultSpeedThreshold, "Camera trigger speed in display units")
	fs.Bool("camera", false, "Capture a still for every reading faster than the threshold")
}

// applyFlags copies the flags explicitly set on fs over cfg.
func applyFlags(cfg *config.Config, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.(flag.Getter).Get()
		switch f.Name {
		case "listen":
			s := v.(string)
			cfg.Listen = &s
		case "port":
			s := v.(string)
			cfg.Device = &s
		case "units":
			s := v.(string)
			cfg.SpeedUnits = &s
		case "threshold":
			t := v.(float64)
			cfg.SpeedThreshold = &t
		case "camera":
			b := v.(bool)
			cfg.CameraEnabled = &b
		}
	})
}

type service struct {
	driver *kld7.Driver
	ctrl   *controller.Controller
	still  *camera.Still
	mux    *http.ServeMux
}

// newService connects to the sensor and wires the controller, camera and
// HTTP routes.
func newService(cfg *config.Config, factory serialmux.SerialPortFactory) (*service, error) {
	driver := kld7.NewDriver(factory)
	status, err := driver.Connect(cfg.GetDevice())
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.GetDevice(), err)
	}
	if driver.State() != kld7.StateReady {
		return nil, fmt.Errorf("connect to %s: sensor answered %v", cfg.GetDevice(), status)
	}
	log.Printf("connected to %s (%s), status %v", cfg.GetDevice(), driver.Device(), status)

	s := &service{driver: driver}
	threshold := cfg.GetSpeedThreshold()
	opts := controller.Options{
		Units:          cfg.GetSpeedUnits(),
		SpeedThreshold: &threshold,
		PollInterval:   cfg.GetPollInterval(),
		HistorySize:    cfg.GetHistorySize(),
		SpeedLadder:    cfg.GetSpeedLadder(),
		Location:       cfg.GetLocation(),
	}
	if cfg.GetCameraEnabled() {
		s.still = camera.NewStill(camera.Config{
			Dir:     cfg.GetCameraDir(),
			Command: cfg.GetCameraCommand(),
			DryRun:  cfg.GetCameraDryRun(),
		})
		opts.Camera = s.still
	}
	s.ctrl = controller.New(driver, opts)

	var captures api.CaptureLister
	if s.still != nil {
		captures = s.still
	}
	server := api.NewServer(s.ctrl, captures)
	s.mux = server.ServeMux()
	server.AttachAdminRoutes(s.mux)
	return s, nil
}

// Main
func main() {
	registerOverrides(flag.CommandLine)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *quiet {
		monitoring.SetLogger(nil)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyFlags(cfg, flag.CommandLine)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	log.Printf("starting %s", version.String())

	var factory serialmux.SerialPortFactory
	if *devMode {
		sim := kld7.NewSimulator()
		sim.Targets = kld7.TrafficTargets(time.Now().UnixNano())
		factory = sim
		log.Printf("dev mode: using simulated sensor")
	} else {
		factory = serialmux.RealPortFactory{ReadTimeout: cfg.GetReadTimeout()}
	}

	svc, err := newService(cfg, factory)
	if err != nil {
		log.Fatalf("failed to initialize device: %v", err)
	}

	// Create a wait group for the HTTP server and poll routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := svc.ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("poll loop stopped: %v", err)
			stop()
		}
		log.Print("poll routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:    cfg.GetListen(),
			Handler: api.LoggingMiddleware(svc.mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", server.Addr)
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
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	if err := svc.ctrl.Close(); err != nil {
		log.Printf("failed to disconnect sensor: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}
