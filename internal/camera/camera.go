// Package camera takes a still photograph when the radar tracks a fast
// target.
package camera

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/speed.report/internal/history"
	"github.com/banshee-data/speed.report/internal/monitoring"
	"github.com/banshee-data/speed.report/internal/timeutil"
)

// PathToken in a command argument is replaced by the output file path.
const PathToken = "{path}"

// DefaultCommand captures one frame without a preview window.
var DefaultCommand = []string{"rpicam-still", "-n", "-t", "1", "-o", PathToken}

const (
	defaultTimeout = 10 * time.Second
	recentCaptures = 20
)

// Runner executes a capture command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the local host.
type ExecRunner struct{}

// Run executes name and returns its combined output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Capture describes one attempted photograph.
type Capture struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	Path       string    `json:"path"`
	Speed      float64   `json:"speed"`
	DistanceCM uint16    `json:"distance_cm"`
	DryRun     bool      `json:"dry_run,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Config configures a Still camera.
type Config struct {
	Dir     string
	Command []string
	DryRun  bool
	Timeout time.Duration
	Runner  Runner
	Clock   timeutil.Clock
}

// Still shells out to a still-capture command for every trigger.
type Still struct {
	dir     string
	command []string
	dryRun  bool
	timeout time.Duration
	runner  Runner
	clock   timeutil.Clock

	mu     sync.Mutex
	recent *history.Ring[Capture]
}

// NewStill returns a camera writing into cfg.Dir.
func NewStill(cfg Config) *Still {
	s := &Still{
		dir:     cfg.Dir,
		command: cfg.Command,
		dryRun:  cfg.DryRun,
		timeout: cfg.Timeout,
		runner:  cfg.Runner,
		clock:   cfg.Clock,
		recent:  history.New[Capture](recentCaptures),
	}
	if len(s.command) == 0 {
		s.command = DefaultCommand
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.runner == nil {
		s.runner = ExecRunner{}
	}
	if s.clock == nil {
		s.clock = timeutil.RealClock{}
	}
	return s
}

// FileName returns the capture file name for a target seen at t, e.g.
// 20240501173000123456-42.jpg.
func FileName(t time.Time, speed float64) string {
	return fmt.Sprintf("%s%06d-%02d.jpg", t.Format("20060102150405"), t.Nanosecond()/1000, int(speed))
}

func (s *Still) args(path string) []string {
	args := make([]string, 0, len(s.command))
	substituted := false
	for _, a := range s.command[1:] {
		if strings.Contains(a, PathToken) {
			a = strings.ReplaceAll(a, PathToken, path)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, path)
	}
	return args
}

// Capture takes one photograph of a target moving at speed.
func (s *Still) Capture(speed float64, distanceCM uint16) error {
	now := s.clock.Now()
	c := Capture{
		ID:         uuid.NewString(),
		Time:       now,
		Path:       filepath.Join(s.dir, FileName(now, speed)),
		Speed:      speed,
		DistanceCM: distanceCM,
		DryRun:     s.dryRun,
	}
	err := s.capture(c)
	if err != nil {
		c.Error = err.Error()
	}
	s.mu.Lock()
	s.recent.Push(c)
	s.mu.Unlock()
	return err
}

func (s *Still) capture(c Capture) error {
	args := s.args(c.Path)
	if s.dryRun {
		monitoring.Logf("[DRY-RUN] would capture %s: %s %s", c.ID, s.command[0], strings.Join(args, " "))
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create capture directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	out, err := s.runner.Run(ctx, s.command[0], args...)
	if err != nil {
		return fmt.Errorf("%s failed: %w (output: %s)", s.command[0], err, strings.TrimSpace(string(out)))
	}
	monitoring.Logf("captured %s at %.0f", c.Path, c.Speed)
	return nil
}

// Recent returns the latest captures, newest first.
func (s *Still) Recent() []Capture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recent.RecentFirst()
}
