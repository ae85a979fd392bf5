package api

import (
	"bytes"
	"image/png"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/speed.report/internal/stats"
	"github.com/banshee-data/speed.report/internal/testutil"
)

func TestBucketLabels(t *testing.T) {
	got := bucketLabels([]stats.Bucket{{Threshold: 1}, {Threshold: 12.5}, {Threshold: 50}})
	assert.Equal(t, []string{">1", ">12.5", ">50"}, got)
}

func TestStatsChart(t *testing.T) {
	f := newFixture(t, nil)
	f.poll(t)

	rec := f.do(testutil.NewTestRequest(http.MethodGet, "/api/charts/stats"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "Readings by hour")
	assert.Contains(t, body, "Readings by speed (mph)")
}

func TestSpeedsPlot(t *testing.T) {
	f := newFixture(t, nil)
	f.poll(t)

	rec := f.do(testutil.NewTestRequest(http.MethodGet, "/api/charts/speeds.png"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
}
