package api

import (
	"net/http"

	"github.com/marmos91/cipherdrop/pkg/state"
)

// AdminHandler serves the read-only admin endpoints over the state
// registry. All data comes from the registry's in-memory mirror, so
// handlers never block on the backing store.
type AdminHandler struct {
	registry *state.Registry
}

// NewAdminHandler creates a handler over the given registry. The registry
// may be nil, in which case every endpoint reports the server unhealthy.
func NewAdminHandler(registry *state.Registry) *AdminHandler {
	return &AdminHandler{registry: registry}
}

// ClientView is the client record as exposed by the API. Key material
// never leaves the server; only its presence is reported.
type ClientView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	LastSeen      string `json:"last_seen"`
	HasPublicKey  bool   `json:"has_public_key"`
	HasSessionKey bool   `json:"has_session_key"`
}

// FileView is the file record as exposed by the API.
type FileView struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	PathName string `json:"path_name"`
	Verified bool   `json:"verified"`
}

// Healthz handles GET /healthz - liveness probe.
//
// Returns 200 OK as long as the process is serving and the state registry
// is loaded. Designed for Kubernetes-style liveness probes.
func (h *AdminHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		JSON(w, http.StatusServiceUnavailable, UnhealthyResponse("state not loaded"))
		return
	}

	JSON(w, http.StatusOK, HealthyResponse(map[string]string{
		"service": "cipherdrop",
	}))
}

// Clients handles GET /api/v1/clients - all registered clients sorted by
// name.
func (h *AdminHandler) Clients(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		JSON(w, http.StatusServiceUnavailable, UnhealthyResponse("state not loaded"))
		return
	}

	clients := h.registry.Clients()
	views := make([]ClientView, 0, len(clients))
	for _, c := range clients {
		views = append(views, ClientView{
			ID:            c.ID,
			Name:          c.Name,
			LastSeen:      c.LastSeen,
			HasPublicKey:  c.HasPublicKey(),
			HasSessionKey: c.HasSessionKey(),
		})
	}

	JSON(w, http.StatusOK, OKResponse(views))
}

// Files handles GET /api/v1/files - all file records sorted by path.
func (h *AdminHandler) Files(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		JSON(w, http.StatusServiceUnavailable, UnhealthyResponse("state not loaded"))
		return
	}

	files := h.registry.Files()
	views := make([]FileView, 0, len(files))
	for _, f := range files {
		views = append(views, FileView{
			ClientID: f.ClientID,
			Name:     f.Name,
			PathName: f.PathName,
			Verified: f.Verified,
		})
	}

	JSON(w, http.StatusOK, OKResponse(views))
}

// Stats handles GET /api/v1/stats - registry counters.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		JSON(w, http.StatusServiceUnavailable, UnhealthyResponse("state not loaded"))
		return
	}

	JSON(w, http.StatusOK, OKResponse(h.registry.Stats()))
}
