// Package api serves the radar's readings, statistics and sensor parameters
// over HTTP.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/speed.report/internal/camera"
	"github.com/banshee-data/speed.report/internal/controller"
	"github.com/banshee-data/speed.report/internal/kld7"
	"github.com/banshee-data/speed.report/internal/stats"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Radar is the controller surface the HTTP layer reads and writes through.
type Radar interface {
	GetLastReadings() []controller.Reading
	GetStats() stats.Stats
	RecentSummary() stats.Summary
	GetParameters() []kld7.Parameter
	SetParameter(name string, value int) (kld7.Status, error)
	SetParameterLabel(name, label string) (kld7.Status, error)
	RestoreFactorySettings() (kld7.Status, error)
	RefreshParameters() (kld7.Status, error)
	SetSpeedThreshold(speed float64) error
	SpeedThreshold() float64
	Status() controller.Status
	Units() string
	Subscribe() (string, <-chan controller.Reading)
	Unsubscribe(id string)
}

// CaptureLister lists recent camera captures.
type CaptureLister interface {
	Recent() []camera.Capture
}

type Server struct {
	radar    Radar
	captures CaptureLister
}

// NewServer returns a server over radar. captures may be nil when no camera
// is configured.
func NewServer(radar Radar, captures CaptureLister) *Server {
	return &Server{radar: radar, captures: captures}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the public API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/readings", s.listReadings)
	mux.HandleFunc("GET /api/stats", s.showStats)
	mux.HandleFunc("GET /api/params", s.listParams)
	mux.HandleFunc("GET /api/params/{name}", s.showParam)
	mux.HandleFunc("POST /api/params/{name}", s.setParam)
	mux.HandleFunc("POST /api/params-refresh", s.refreshParams)
	mux.HandleFunc("POST /api/params-reset", s.resetParams)
	mux.HandleFunc("POST /api/threshold", s.setThreshold)
	mux.HandleFunc("GET /api/status", s.showStatus)
	mux.HandleFunc("GET /api/captures", s.listCaptures)
	mux.HandleFunc("GET /api/charts/stats", s.statsChart)
	mux.HandleFunc("GET /api/charts/speeds.png", s.speedsPlot)
	return mux
}
