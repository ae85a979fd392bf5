package kld7

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/speed.report/internal/serialmux"
)

func TestSimulator_DriverRoundTrip(t *testing.T) {
	t.Parallel()

	sim := NewSimulator()
	d := NewDriver(sim)

	status, err := d.Connect("sim")
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, serialmux.HighBaudRate, sim.Mode().BaudRate)

	v, _ := d.Parameter(ParamSoftwareVersion)
	assert.Equal(t, SimulatorVersion, v.Text)

	status, err = d.SetParameter(ParamMaximumDetectionAngle, 45)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, 45, sim.Value(ParamMaximumDetectionAngle))
	p, _ := d.Parameter(ParamMaximumDetectionAngle)
	assert.Equal(t, 45, p.Value)

	status, err = d.SetParameter(ParamMinimumDetectionAngle, -60)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, -60, sim.Value(ParamMinimumDetectionAngle))

	status, err = d.SetParameter(ParamThresholdOffset, 35)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalidParameterValue, status)

	status, err = d.SetParameter(ParamHoldTime, 600)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	p, _ = d.Parameter(ParamHoldTime)
	assert.Equal(t, 600, p.Value)

	status, err = d.RestoreFactorySettings()
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	p, _ = d.Parameter(ParamHoldTime)
	assert.Equal(t, 1, p.Value)

	status, err = d.Disconnect()
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, []string{"INIT", "GRPS", "MAAN", "GRPS", "MIAN", "GRPS", "THOF", "HOLD", "GRPS", "RFSE", "GRPS", "GBYE"}, sim.Commands)
}

func TestSimulator_Targets(t *testing.T) {
	t.Parallel()

	sim := NewSimulator()
	present := false
	sim.Targets = func() (uint16, float64, float64, uint16, bool) {
		present = !present
		return 850, 48.5, -12.5, 4100, present
	}
	d := NewDriver(sim)
	_, err := d.Connect("sim")
	require.NoError(t, err)

	det, ok, err := d.GetDetection()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint16(850), det.DistanceCM)
	assert.InDelta(t, 48.5, det.Speed, 1e-9)
	assert.InDelta(t, -0.2181661565, det.Angle, 1e-9)

	_, ok, err = d.GetDetection()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSimulator_OverrideInit(t *testing.T) {
	t.Parallel()

	sim := NewSimulator()
	sim.Override[CmdInit] = StatusUARTError
	d := NewDriver(sim)

	status, err := d.Connect("sim")
	require.NoError(t, err)
	assert.Equal(t, StatusUARTError, status)
	assert.Equal(t, StateUninitialized, d.State())

	delete(sim.Override, CmdInit)
	status, err = d.Connect("sim")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, StateReady, d.State())
}

func TestTrafficTargets(t *testing.T) {
	t.Parallel()

	next := TrafficTargets(7)
	seen := 0
	for i := 0; i < 5000; i++ {
		dist, speed, _, mag, ok := next()
		if !ok {
			continue
		}
		seen++
		assert.GreaterOrEqual(t, dist, uint16(100))
		assert.GreaterOrEqual(t, mag, uint16(2000))
		assert.True(t, speed >= 15 || speed <= -15, "speed %v", speed)
	}
	assert.Positive(t, seen)
}
