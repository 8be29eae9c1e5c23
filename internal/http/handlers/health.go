package handlers

import "net/http"

type healthResponse struct {
	Status     string `json:"status"`
	Workspaces int    `json:"workspaces"`
}

// Health reports liveness and how many workspaces are resident in memory.
func (api *API) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}
	response := healthResponse{Status: "ok"}
	if api.registry != nil {
		response.Workspaces = api.registry.Len()
	}
	writeJSON(w, http.StatusOK, response)
}
