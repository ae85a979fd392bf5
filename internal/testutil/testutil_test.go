package testutil

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertHelpers_PassingPaths(t *testing.T) {
	t.Parallel()

	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertNoError(t, nil)
	AssertError(t, assert.AnError)
}

func TestNewFormRequest(t *testing.T) {
	t.Parallel()

	req := NewFormRequest("/api/threshold", url.Values{"speed": {"22"}})
	require.NoError(t, req.ParseForm())
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "22", req.PostForm.Get("speed"))
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	rec := NewTestRecorder()
	rec.WriteString(`{"speed":12.5}`)
	var body struct {
		Speed float64 `json:"speed"`
	}
	DecodeJSON(t, rec, &body)
	assert.Equal(t, 12.5, body.Speed)
}

func TestStatusResponse(t *testing.T) {
	t.Parallel()

	got := StatusResponse(StatusSensorBusy)
	assert.Equal(t, []byte{'R', 'E', 'S', 'P', 1, 0, 0, 0, 5}, got)
}

func TestFrames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{'G', 'B', 'Y', 'E', 0, 0, 0, 0}, Frame("GBYE", nil))
	assert.Equal(t, []byte{'M', 'I', 'A', 'N', 4, 0, 0, 0, 0xd3, 0xff, 0xff, 0xff}, ValueFrame("MIAN", -45))
}

func TestTargetScripts(t *testing.T) {
	t.Parallel()

	none := NoTarget()
	require.Len(t, none, 17)
	assert.Zero(t, none[9+4], "presence flag")

	hit := Target(1234, -32.19, 45, 3000)
	require.Len(t, hit, 25)
	assert.Equal(t, byte(8), hit[9+4])
	assert.Equal(t, []byte{0xd2, 0x04, 0x6d, 0xf3, 0x94, 0x11, 0xb8, 0x0b}, hit[17:])
}

func TestParameterDump(t *testing.T) {
	t.Parallel()

	got := ParameterDump(make([]byte, 42))
	require.Len(t, got, 9+8+42)
	assert.Equal(t, "RPST", string(got[9:13]))
	assert.Equal(t, byte(42), got[13])
}
