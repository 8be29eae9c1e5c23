package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/iago/content-orchestrator-back/internal/http/middleware"
	"github.com/iago/content-orchestrator-back/internal/notify"
	"github.com/iago/content-orchestrator-back/internal/orchestrator"
)

const (
	selectionToggle      = "toggle"
	selectionSelectAll   = "select_all"
	selectionDeselectAll = "deselect_all"

	idempotencyHeader = "Idempotency-Key"
)

type selectionRequest struct {
	Action   string `json:"action" validate:"required,oneof=toggle select_all deselect_all"`
	TopicID  string `json:"topic_id,omitempty" validate:"required_if=Action toggle,max=128"`
	Included *bool  `json:"included,omitempty" validate:"required_if=Action toggle"`
}

type selectionResponse struct {
	Topics      []domain.Topic `json:"topics"`
	SelectedIDs []string       `json:"selected_ids"`
	Count       int            `json:"count"`
	AllSelected bool           `json:"all_selected"`
}

type startGenerationRequest struct {
	BrandName string `json:"brand_name,omitempty" validate:"max=200"`
	Premium   bool   `json:"premium,omitempty"`
}

type startIdempotencyPayload struct {
	UserID  string                 `json:"user_id"`
	BrandID string                 `json:"brand_id"`
	Request startGenerationRequest `json:"request"`
}

func (api *API) workspace(identity middleware.WorkspaceIdentity) *orchestrator.Workspace {
	return api.registry.Workspace(identity.UserID, identity.BrandID)
}

// refreshSelection feeds the selected topics of the workspace into its
// selection set, dropping ids that no longer exist.
func (api *API) refreshSelection(ctx context.Context, workspace *orchestrator.Workspace) error {
	topics, err := api.topics.List(ctx, domain.TopicListFilter{
		UserID:  workspace.Key.UserID,
		BrandID: workspace.Key.BrandID,
		Status:  domain.TopicStatusSelected,
	})
	if err != nil {
		return err
	}
	workspace.Selection.SetTopics(topics)
	return nil
}

func newSelectionResponse(selection *orchestrator.Selection) selectionResponse {
	selected := selection.SelectedTopics()
	ids := make([]string, 0, len(selected))
	for _, topic := range selected {
		ids = append(ids, topic.ID)
	}
	return selectionResponse{
		Topics:      selection.Topics(),
		SelectedIDs: ids,
		Count:       selection.Count(),
		AllSelected: selection.IsAllSelected(),
	}
}

// GenerationSelection serves GET and POST on /v1/generation/selection.
func (api *API) GenerationSelection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	identity, ok := workspaceIdentity(w, r)
	if !ok {
		return
	}
	workspace := api.workspace(identity)
	if err := api.refreshSelection(r.Context(), workspace); err != nil {
		api.writeServiceError(w, r, err, "load selection")
		return
	}

	if r.Method == http.MethodPost {
		var request selectionRequest
		if !decodeAndValidate(w, r, &request) {
			return
		}
		switch request.Action {
		case selectionToggle:
			workspace.Selection.Toggle(strings.TrimSpace(request.TopicID), *request.Included)
		case selectionSelectAll:
			workspace.Selection.SelectAll()
		case selectionDeselectAll:
			workspace.Selection.DeselectAll()
		}
	}
	writeJSON(w, http.StatusOK, newSelectionResponse(workspace.Selection))
}

// GenerationConfig serves GET and PATCH on /v1/generation/config.
func (api *API) GenerationConfig(w http.ResponseWriter, r *http.Request) {
	identity, ok := workspaceIdentity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, api.workspace(identity).Config.Snapshot())
	case http.MethodPatch:
		var patch orchestrator.ConfigPatch
		if !decodeAndValidate(w, r, &patch) {
			return
		}
		if patch.Language != nil && len(*patch.Language) > 40 {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "language must have at most 40 chars")
			return
		}
		if patch.Tone != nil && len(*patch.Tone) > 40 {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "tone must have at most 40 chars")
			return
		}
		writeJSON(w, http.StatusOK, api.workspace(identity).Config.Apply(patch))
	default:
		methodNotAllowed(w, r)
	}
}

// GenerationStart serves POST /v1/generation/start. The session is accepted
// once the job runner acknowledges it; progress is read from
// /v1/generation/session.
func (api *API) GenerationStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	identity, ok := workspaceIdentity(w, r)
	if !ok {
		return
	}

	var request startGenerationRequest
	if !decodeAndValidate(w, r, &request) {
		return
	}
	request.BrandName = strings.TrimSpace(request.BrandName)
	if request.BrandName == "" {
		request.BrandName = api.brandName
	}
	workspace := api.workspace(identity)

	idempotencyKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	payloadHash := hashPayload(startIdempotencyPayload{
		UserID:  identity.UserID,
		BrandID: identity.BrandID,
		Request: request,
	})
	if idempotencyKey != "" {
		if entry, exists := api.idempotency.Get(idempotencyKey); exists {
			if entry.PayloadHash != payloadHash {
				writeError(w, r, http.StatusConflict, "idempotency_conflict", "idempotency key already used with a different payload")
				return
			}
			snapshot := workspace.Controller.Snapshot()
			if snapshot.ID == entry.SessionID {
				writeJSON(w, http.StatusAccepted, map[string]any{"session": snapshot, "replayed": true})
				return
			}
		}
	}

	if err := api.refreshSelection(r.Context(), workspace); err != nil {
		api.writeServiceError(w, r, err, "load selection")
		return
	}
	snapshot, err := workspace.Start(r.Context(), request.BrandName, request.Premium)
	if err != nil {
		api.writeServiceError(w, r, err, "start generation")
		return
	}
	if idempotencyKey != "" {
		api.idempotency.Put(idempotencyKey, payloadHash, snapshot.ID)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"session": snapshot})
}

// GenerationSession serves GET (status) and DELETE (clear) on
// /v1/generation/session.
func (api *API) GenerationSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := workspaceIdentity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, api.workspace(identity).Controller.Snapshot())
	case http.MethodDelete:
		writeJSON(w, http.StatusOK, api.workspace(identity).Controller.ClearSession())
	default:
		methodNotAllowed(w, r)
	}
}

// Notifications drains the pending notifications of the workspace.
func (api *API) Notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}
	identity, ok := workspaceIdentity(w, r)
	if !ok {
		return
	}
	notifications := api.workspace(identity).Feed.Drain()
	if notifications == nil {
		notifications = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}
