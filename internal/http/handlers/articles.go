package handlers

import (
	"net/http"
	"strings"

	"github.com/iago/content-orchestrator-back/internal/domain"
)

func (api *API) Articles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}
	identity, ok := workspaceIdentity(w, r)
	if !ok {
		return
	}

	articles, err := api.articles.List(r.Context(), domain.ArticleListFilter{
		UserID:    identity.UserID,
		BrandID:   identity.BrandID,
		SessionID: strings.TrimSpace(r.URL.Query().Get("session_id")),
	})
	if err != nil {
		api.writeServiceError(w, r, err, "list articles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": articles})
}
