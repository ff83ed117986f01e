package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumingya/universal-web-api/idgen"
	"github.com/lumingya/universal-web-api/kit"
	"github.com/lumingya/universal-web-api/workflow"
)

// Routes mounts the profile HTTP API on a chi router.
//
//	GET    /api/profiles                  — list stored profiles
//	GET    /api/profiles/{host}           — full profile for a host
//	PUT    /api/profiles/{host}           — store a complete profile
//	PUT    /api/profiles/{host}/workflow  — replace workflow + merge selectors
//	DELETE /api/profiles/{host}           — remove a profile
//
// Write endpoints require the X-Auth-Token header when auth is configured.
func (r *Registry) Routes(router chi.Router) {
	router.Use(r.requestID)
	router.Get("/api/profiles", r.handleList)
	router.Get("/api/profiles/{host}", r.handleGet)
	router.With(r.requireAuth).Put("/api/profiles/{host}", r.handlePut)
	router.With(r.requireAuth).Put("/api/profiles/{host}/workflow", r.handleReplaceWorkflow)
	router.With(r.requireAuth).Delete("/api/profiles/{host}", r.handleDelete)
}

// requestID tags every request with an ID for log correlation, honouring
// one supplied by the caller and echoing it in the response.
func (r *Registry) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get("X-Request-ID")
		if id == "" {
			id = idgen.New()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, req.WithContext(kit.WithRequestID(req.Context(), id)))
	})
}

// requireAuth checks the X-Auth-Token header against the configured
// bcrypt hash. No-op when auth is disabled.
func (r *Registry) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.config.AuthHash != "" {
			token := req.Header.Get("X-Auth-Token")
			if err := bcrypt.CompareHashAndPassword([]byte(r.config.AuthHash), []byte(token)); err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Registry) handleList(w http.ResponseWriter, req *http.Request) {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	entries, err := r.List(req.Context(), limit)
	if err != nil {
		r.logger.Error("profile: list failed", "request_id", kit.GetRequestID(req.Context()), "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (r *Registry) handleGet(w http.ResponseWriter, req *http.Request) {
	host := chi.URLParam(req, "host")
	p, err := r.Get(req.Context(), host)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}
	if err != nil {
		r.logger.Error("profile: get failed", "request_id", kit.GetRequestID(req.Context()), "host", host, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (r *Registry) handlePut(w http.ResponseWriter, req *http.Request) {
	host := chi.URLParam(req, "host")

	var p workflow.SiteProfile
	if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := r.Put(req.Context(), host, &p); err != nil {
		r.logger.Error("profile: put failed", "request_id", kit.GetRequestID(req.Context()), "host", host, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored", "host": host})
}

// ReplaceWorkflowRequest is the body for PUT /api/profiles/{host}/workflow.
type ReplaceWorkflowRequest struct {
	Workflow  []workflow.ActionRecord `json:"workflow"`
	Selectors map[string]string       `json:"selectors,omitempty"`
}

func (r *Registry) handleReplaceWorkflow(w http.ResponseWriter, req *http.Request) {
	host := chi.URLParam(req, "host")

	var body ReplaceWorkflowRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := r.ReplaceWorkflow(req.Context(), host, body.Workflow, body.Selectors)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}
	if err != nil {
		r.logger.Error("profile: replace workflow failed", "request_id", kit.GetRequestID(req.Context()), "host", host, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "replaced", "host": host})
}

func (r *Registry) handleDelete(w http.ResponseWriter, req *http.Request) {
	host := chi.URLParam(req, "host")
	if err := r.Delete(req.Context(), host); err != nil {
		r.logger.Error("profile: delete failed", "request_id", kit.GetRequestID(req.Context()), "host", host, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "host": host})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
