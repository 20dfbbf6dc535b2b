// Package api exposes the proposal service over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sheikhmdsamiul/swiftme/internal/metrics"
	"github.com/sheikhmdsamiul/swiftme/internal/pipeline"
	"github.com/sheikhmdsamiul/swiftme/internal/profile"
	"github.com/sheikhmdsamiul/swiftme/internal/proposal"
	"github.com/sheikhmdsamiul/swiftme/internal/retrieval"
)

const maxRequestBodySize = 1 << 20 // 1MB

const fetchTimeout = 15 * time.Second

// Service is the set of proposal operations the transports expose.
type Service interface {
	SetupProfile(ctx context.Context, p profile.Profile) bool
	GenerateProposal(ctx context.Context, posting string, tone proposal.Tone, customInstructions string) (proposal.GeneratedProposal, error)
	History() []proposal.GeneratedProposal
	Proposal(ctx context.Context, id string) (proposal.GeneratedProposal, error)
	SearchExperience(ctx context.Context, query string, k int) []retrieval.Hit
	Status(ctx context.Context) pipeline.Status
}

// Fetcher downloads a job posting URL and reduces it to text.
type Fetcher func(ctx context.Context, url string) (string, error)

// Deps holds dependencies for the HTTP handler.
type Deps struct {
	Service Service
	Metrics *metrics.Manager
	// Fetch resolves job_posting_url. When nil, URL postings are rejected.
	Fetch   Fetcher
	Logger  *slog.Logger
	Version string
}

// ProfileSetupRequest is the body of POST /api/profile/setup.
type ProfileSetupRequest struct {
	Profile profile.Profile `json:"profile"`
}

// ProfileSetupResponse reports whether the profile was indexed.
type ProfileSetupResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ProposalRequest is the body of POST /api/proposal/generate. Exactly one
// of JobPosting and JobPostingURL is required.
type ProposalRequest struct {
	JobPosting         string `json:"job_posting"`
	JobPostingURL      string `json:"job_posting_url,omitempty"`
	Tone               string `json:"tone,omitempty"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

// ProposalResponse is the result of a generation.
type ProposalResponse struct {
	ID                   string   `json:"id"`
	Proposal             string   `json:"proposal"`
	ConfidenceScore      float64  `json:"confidence_score"`
	MatchedSkills        []string `json:"matched_skills"`
	Timestamp            string   `json:"timestamp"`
	Tone                 string   `json:"tone"`
	RequirementsDegraded bool     `json:"requirements_degraded"`
}

// HistoryResponse lists the most recent proposals, oldest first.
type HistoryResponse struct {
	Proposals []proposal.GeneratedProposal `json:"proposals"`
}

// SearchRequest is the body of POST /api/experience/search.
type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// SearchResponse holds ranked experience hits.
type SearchResponse struct {
	Results []retrieval.Hit `json:"results"`
}

// NewHandler returns the HTTP API.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument(deps.Metrics))
	r.Use(allowAllOrigins())

	r.Get("/", handleRoot(deps))
	r.Get("/health", handleHealth)
	r.Get("/status", handleStatus(deps))
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/profile/setup", handleSetupProfile(deps))
		r.Post("/proposal/generate", handleGenerateProposal(deps))
		r.Get("/proposal/history", handleHistory(deps))
		r.Get("/proposal/{id}", handleGetProposal(deps))
		r.Post("/experience/search", handleSearch(deps))
	})

	return r
}

func handleRoot(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "swiftme API - job proposal generator",
			"status":  "running",
			"version": deps.Version,
			"endpoints": map[string]string{
				"setup_profile":     "POST /api/profile/setup",
				"generate_proposal": "POST /api/proposal/generate",
				"proposal_history":  "GET /api/proposal/history",
				"get_proposal":      "GET /api/proposal/{id}",
				"search_experience": "POST /api/experience/search",
				"status":            "GET /status",
				"metrics":           "GET /metrics",
			},
		})
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Service.Status(r.Context()))
	}
}

func handleSetupProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProfileSetupRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := req.Profile.Validate(); err != nil {
			httpError(w, http.StatusBadRequest, errInvalidRequest, "invalid profile: %v", err)
			return
		}

		if !deps.Service.SetupProfile(r.Context(), req.Profile) {
			httpError(w, http.StatusInternalServerError, errAPI, "Failed to setup profile")
			return
		}
		writeJSON(w, http.StatusOK, ProfileSetupResponse{
			Success: true,
			Message: "Profile successfully stored in knowledge base",
		})
	}
}

func handleGenerateProposal(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProposalRequest
		if !decodeBody(w, r, &req) {
			return
		}

		tone, err := proposal.ParseTone(req.Tone)
		if err != nil {
			httpError(w, http.StatusBadRequest, errInvalidRequest, "%v", err)
			return
		}

		posting := strings.TrimSpace(req.JobPosting)
		url := strings.TrimSpace(req.JobPostingURL)
		switch {
		case posting != "" && url != "":
			httpError(w, http.StatusBadRequest, errInvalidRequest, "provide job_posting or job_posting_url, not both")
			return
		case posting == "" && url == "":
			httpError(w, http.StatusBadRequest, errInvalidRequest, "job_posting is required")
			return
		case url != "":
			if deps.Fetch == nil {
				httpError(w, http.StatusBadRequest, errInvalidRequest, "job_posting_url is not supported")
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
			posting, err = deps.Fetch(ctx, url)
			cancel()
			if err != nil {
				deps.Logger.Warn("fetching job posting failed", "url", url, "error", err)
				httpError(w, http.StatusBadGateway, errUpstream, "fetching job posting: %v", err)
				return
			}
			if strings.TrimSpace(posting) == "" {
				httpError(w, http.StatusUnprocessableEntity, errInvalidRequest, "job posting at %s has no text", url)
				return
			}
		}

		p, err := deps.Service.GenerateProposal(r.Context(), posting, tone, req.CustomInstructions)
		if err != nil {
			httpError(w, http.StatusInternalServerError, errAPI, "Error generating proposal: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(p))
	}
}

func handleHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HistoryResponse{Proposals: deps.Service.History()})
	}
}

func handleGetProposal(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		p, err := deps.Service.Proposal(r.Context(), id)
		if errors.Is(err, pipeline.ErrProposalNotFound) {
			httpError(w, http.StatusNotFound, errNotFound, "proposal %q not found", id)
			return
		}
		if err != nil {
			deps.Logger.Error("loading proposal failed", "id", id, "error", err)
			httpError(w, http.StatusInternalServerError, errAPI, "failed to load proposal")
			return
		}
		writeJSON(w, http.StatusOK, toResponse(p))
	}
}

func handleSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			httpError(w, http.StatusBadRequest, errInvalidRequest, "query is required")
			return
		}
		if req.K < 0 || req.K > 50 {
			httpError(w, http.StatusBadRequest, errInvalidRequest, "k must be between 0 and 50")
			return
		}

		hits := deps.Service.SearchExperience(r.Context(), req.Query, req.K)
		if hits == nil {
			hits = []retrieval.Hit{}
		}
		writeJSON(w, http.StatusOK, SearchResponse{Results: hits})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, errInvalidRequest, "invalid request body: %v", err)
		return false
	}
	return true
}

func toResponse(p proposal.GeneratedProposal) ProposalResponse {
	skills := p.MatchedSkills
	if skills == nil {
		skills = []string{}
	}
	return ProposalResponse{
		ID:                   p.ID,
		Proposal:             p.Content,
		ConfidenceScore:      p.ConfidenceScore,
		MatchedSkills:        skills,
		Timestamp:            p.Timestamp.Format(time.RFC3339Nano),
		Tone:                 string(p.Tone),
		RequirementsDegraded: p.RequirementsDegraded,
	}
}
