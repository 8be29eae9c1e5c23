package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/iago/content-orchestrator-back/internal/http/middleware"
	"github.com/iago/content-orchestrator-back/internal/metrics"
	"github.com/iago/content-orchestrator-back/internal/repository"
	"github.com/iago/content-orchestrator-back/internal/service"
	"github.com/iago/content-orchestrator-back/internal/wordpress"
)

type connectWordPressRequest struct {
	SiteURL  string `json:"site_url" validate:"required,url,max=300"`
	Username string `json:"username" validate:"notblank,max=120"`
	Password string `json:"password" validate:"required,max=200"`
}

// WordPressIntegration serves PUT (connect) and DELETE (disconnect) on
// /v1/integrations/wordpress for the brand of the request.
func (api *API) WordPressIntegration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodDelete {
		methodNotAllowed(w, r)
		return
	}
	identity, ok := workspaceIdentity(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodDelete {
		if err := api.proxy.Disconnect(r.Context(), identity.BrandID); err != nil {
			api.writeServiceError(w, r, err, "disconnect integration")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var request connectWordPressRequest
	if !decodeAndValidate(w, r, &request) {
		return
	}
	integration, err := api.proxy.Connect(r.Context(), service.ConnectIntegrationInput{
		BrandID:  identity.BrandID,
		SiteURL:  request.SiteURL,
		Username: request.Username,
		Password: request.Password,
	})
	if err != nil {
		api.writeServiceError(w, r, err, "connect integration")
		return
	}
	writeJSON(w, http.StatusOK, integration)
}

// WordPressPost serves GET /v1/proxy/wordpress/post?post_id=. The workspace
// brand owns the credentials; a brand_id parameter naming any other brand
// answers 404.
func (api *API) WordPressPost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}

	query := r.URL.Query()
	brandID := middleware.GetWorkspace(r.Context()).BrandID
	if requested := strings.TrimSpace(query.Get("brand_id")); requested != "" && requested != brandID {
		metrics.ProxyRequests.WithLabelValues(strconv.Itoa(http.StatusNotFound)).Inc()
		writeError(w, r, http.StatusNotFound, "not_found", "integration not found")
		return
	}

	post, err := api.proxy.PostMetadata(r.Context(), brandID, query.Get("post_id"))
	if err != nil {
		status := proxyStatus(err)
		metrics.ProxyRequests.WithLabelValues(strconv.Itoa(status)).Inc()
		switch status {
		case http.StatusBadRequest:
			writeError(w, r, status, "invalid_request", strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": "))
		case http.StatusNotFound:
			writeError(w, r, status, "not_found", err.Error())
		default:
			api.logf("content proxy failed request_id=%s brand_id=%s err=%v", middleware.GetRequestID(r.Context()), brandID, err)
			writeError(w, r, status, "internal_error", "failed to load post metadata")
		}
		return
	}
	metrics.ProxyRequests.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	writeJSON(w, http.StatusOK, post)
}

func proxyStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrIntegrationUnavailable),
		errors.Is(err, wordpress.ErrPostNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
