package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/speed.report/internal/camera"
	"github.com/banshee-data/speed.report/internal/controller"
	"github.com/banshee-data/speed.report/internal/kld7"
	"github.com/banshee-data/speed.report/internal/stats"
	"github.com/banshee-data/speed.report/internal/units"
	"github.com/banshee-data/speed.report/internal/version"
)

type readingsResponse struct {
	Units    string               `json:"units"`
	Readings []controller.Reading `json:"readings"`
}

func (s *Server) listReadings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, readingsResponse{
		Units:    s.radar.Units(),
		Readings: s.radar.GetLastReadings(),
	})
}

type statsResponse struct {
	Units  string        `json:"units"`
	Stats  stats.Stats   `json:"stats"`
	Recent stats.Summary `json:"recent"`
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Units:  s.radar.Units(),
		Stats:  s.radar.GetStats(),
		Recent: s.radar.RecentSummary(),
	})
}

func (s *Server) listParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.radar.GetParameters())
}

func (s *Server) findParam(name string) (kld7.Parameter, bool) {
	for _, p := range s.radar.GetParameters() {
		if p.Name == name {
			return p, true
		}
	}
	return kld7.Parameter{}, false
}

func (s *Server) showParam(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	p, ok := s.findParam(name)
	if !ok {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown parameter %q", name))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// setParam accepts either a raw integer "value" or an enumerated "label".
func (s *Server) setParam(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	value := strings.TrimSpace(r.FormValue("value"))
	label := strings.TrimSpace(r.FormValue("label"))

	var (
		st  kld7.Status
		err error
	)
	switch {
	case value != "" && label != "":
		writeJSONError(w, http.StatusBadRequest, "send either 'value' or 'label', not both")
		return
	case value != "":
		v, perr := strconv.Atoi(value)
		if perr != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid 'value' %q: must be an integer", value))
			return
		}
		st, err = s.radar.SetParameter(name, v)
	case label != "":
		st, err = s.radar.SetParameterLabel(name, label)
	default:
		writeJSONError(w, http.StatusBadRequest, "missing 'value' or 'label'")
		return
	}
	if err != nil {
		writeDriverError(w, err)
		return
	}

	resp := newStatusResponse(st)
	if p, ok := s.findParam(name); ok {
		resp.Parameter = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) refreshParams(w http.ResponseWriter, r *http.Request) {
	st, err := s.radar.RefreshParameters()
	if err != nil {
		writeDriverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatusResponse(st))
}

func (s *Server) resetParams(w http.ResponseWriter, r *http.Request) {
	st, err := s.radar.RestoreFactorySettings()
	if err != nil {
		writeDriverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatusResponse(st))
}

func (s *Server) setThreshold(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.FormValue("speed"))
	speed, err := strconv.ParseFloat(raw, 64)
	if err != nil || speed < 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid 'speed' %q: must be a non-negative number", raw))
		return
	}
	if err := s.radar.SetSpeedThreshold(speed); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"speed_threshold": s.radar.SpeedThreshold(),
		"units":           s.radar.Units(),
	})
}

type statusBody struct {
	controller.Status
	UnitsLabel string `json:"units_label"`
	Version    string `json:"version"`
	GitSHA     string `json:"git_sha"`
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	st := s.radar.Status()
	writeJSON(w, http.StatusOK, statusBody{
		Status:     st,
		UnitsLabel: units.Label(st.Units),
		Version:    version.Version,
		GitSHA:     version.GitSHA,
	})
}

func (s *Server) listCaptures(w http.ResponseWriter, r *http.Request) {
	if s.captures == nil {
		writeJSON(w, http.StatusOK, []camera.Capture{})
		return
	}
	writeJSON(w, http.StatusOK, s.captures.Recent())
}
