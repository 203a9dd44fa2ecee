package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
	"github.com/MikeSquared-Agency/parley/internal/classifier"
)

type tacticView struct {
	Tactic         catalog.Tactic   `json:"tactic"`
	Name           string           `json:"name"`
	Weight         float64          `json:"weight"`
	Severity       catalog.Severity `json:"severity"`
	RequiresNumber bool             `json:"requires_number"`
	Suggestions    []string         `json:"suggestions"`
}

func (s *Server) listTactics(w http.ResponseWriter, r *http.Request) {
	defs := catalog.Definitions()
	out := make([]tacticView, 0, len(defs))
	for _, d := range defs {
		out = append(out, tacticView{
			Tactic:         d.Tactic,
			Name:           d.Name,
			Weight:         d.Weight,
			Severity:       d.Severity,
			RequiresNumber: d.RequiresNumber,
			Suggestions:    d.Suggestions,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Classifier.Scenarios())
}

type classifyRequest struct {
	Text        string           `json:"text"`
	Scenario    catalog.Scenario `json:"scenario"`
	Sensitivity float64          `json:"sensitivity"`
}

type classifyResponse struct {
	Pattern *classifier.DetectedPattern `json:"pattern"`
	Scores  []classifier.Score          `json:"scores"`
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.Scenario == "" {
		req.Scenario = catalog.ScenarioGeneral
	}
	if !s.knownScenario(req.Scenario) {
		writeError(w, http.StatusBadRequest, "unknown scenario: "+string(req.Scenario))
		return
	}

	writeJSON(w, http.StatusOK, classifyResponse{
		Pattern: s.deps.Classifier.Classify(req.Text, req.Scenario, req.Sensitivity, time.Now()),
		Scores:  s.deps.Classifier.Scores(req.Text, req.Scenario, req.Sensitivity),
	})
}

func (s *Server) knownScenario(sc catalog.Scenario) bool {
	_, ok := s.deps.Classifier.Scenarios()[sc]
	return ok
}
