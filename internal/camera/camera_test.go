package camera

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/speed.report/internal/monitoring"
	"github.com/banshee-data/speed.report/internal/timeutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

type recordingRunner struct {
	name string
	args []string
	out  []byte
	err  error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.name = name
	r.args = args
	return r.out, r.err
}

var shutter = time.Date(2024, 5, 1, 17, 30, 0, 123456789, time.UTC)

func TestFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "20240501173000123456-42.jpg", FileName(shutter, 42.9))
	assert.Equal(t, "20240501173000123456-07.jpg", FileName(shutter, 7))
}

func TestCapture_RunsCommand(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "captures")
	runner := &recordingRunner{}
	cam := NewStill(Config{Dir: dir, Runner: runner, Clock: timeutil.NewMockClock(shutter)})

	require.NoError(t, cam.Capture(33, 1200))

	want := filepath.Join(dir, "20240501173000123456-33.jpg")
	assert.Equal(t, "rpicam-still", runner.name)
	assert.Equal(t, []string{"-n", "-t", "1", "-o", want}, runner.args)
	assert.DirExists(t, dir)

	recent := cam.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, want, recent[0].Path)
	assert.Equal(t, uint16(1200), recent[0].DistanceCM)
	assert.Len(t, recent[0].ID, 36)
	assert.Empty(t, recent[0].Error)
}

func TestCapture_CustomCommandWithoutToken(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	cam := NewStill(Config{
		Dir:     t.TempDir(),
		Command: []string{"fswebcam", "--no-banner"},
		Runner:  runner,
		Clock:   timeutil.NewMockClock(shutter),
	})

	require.NoError(t, cam.Capture(20, 100))
	assert.Equal(t, "fswebcam", runner.name)
	require.Len(t, runner.args, 2)
	assert.Equal(t, "--no-banner", runner.args[0])
	assert.Contains(t, runner.args[1], "-20.jpg")
}

func TestCapture_Failure(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{out: []byte("no cameras available\n"), err: errors.New("exit status 1")}
	cam := NewStill(Config{Dir: t.TempDir(), Runner: runner, Clock: timeutil.NewMockClock(shutter)})

	err := cam.Capture(50, 300)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cameras available")

	recent := cam.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, err.Error(), recent[0].Error)
}

func TestCapture_DryRun(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "never")
	runner := &recordingRunner{}
	cam := NewStill(Config{Dir: dir, DryRun: true, Runner: runner})

	require.NoError(t, cam.Capture(60, 800))
	assert.Empty(t, runner.name)
	assert.NoDirExists(t, dir)
	assert.True(t, cam.Recent()[0].DryRun)
}

func TestRecent_Bounded(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(shutter)
	cam := NewStill(Config{Dir: t.TempDir(), Runner: &recordingRunner{}, Clock: clock})
	for i := 0; i < recentCaptures+5; i++ {
		clock.Advance(time.Second)
		require.NoError(t, cam.Capture(float64(20+i), 100))
	}

	recent := cam.Recent()
	require.Len(t, recent, recentCaptures)
	assert.Equal(t, float64(20+recentCaptures+4), recent[0].Speed)
}
