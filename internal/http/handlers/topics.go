package handlers

import (
	"net/http"
	"strings"

	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/iago/content-orchestrator-back/internal/service"
)

type selectTopicRequest struct {
	SourceTopicID string   `json:"source_topic_id" validate:"notblank,max=128"`
	CampaignID    string   `json:"campaign_id,omitempty" validate:"max=128"`
	Title         string   `json:"title,omitempty" validate:"max=300"`
	Keywords      []string `json:"keywords,omitempty" validate:"max=30,dive,max=120"`
	Intent        string   `json:"intent,omitempty" validate:"omitempty,oneof=informational navigational commercial transactional"`
	Outline       []string `json:"outline,omitempty" validate:"max=40,dive,max=300"`
}

type researchRequest struct {
	Seed       string `json:"seed" validate:"notblank,max=300"`
	CampaignID string `json:"campaign_id,omitempty" validate:"max=128"`
	Count      int    `json:"count,omitempty" validate:"gte=0,lte=20"`
	Language   string `json:"language,omitempty" validate:"max=40"`
}

// Topics serves GET (list) and POST (select a suggestion) on /v1/topics.
func (api *API) Topics(w http.ResponseWriter, r *http.Request) {
	identity, ok := workspaceIdentity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		status := domain.TopicStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))))
		switch status {
		case "", domain.TopicStatusSuggested, domain.TopicStatusSelected, domain.TopicStatusUsed:
		default:
			writeError(w, r, http.StatusBadRequest, "invalid_request", "status must be suggested, selected or used")
			return
		}
		topics, err := api.topics.List(r.Context(), domain.TopicListFilter{
			UserID:  identity.UserID,
			BrandID: identity.BrandID,
			Status:  status,
		})
		if err != nil {
			api.writeServiceError(w, r, err, "list topics")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"topics": topics})
	case http.MethodPost:
		var request selectTopicRequest
		if !decodeAndValidate(w, r, &request) {
			return
		}
		topic, err := api.topics.Select(r.Context(), service.SelectTopicInput{
			UserID:        identity.UserID,
			BrandID:       identity.BrandID,
			CampaignID:    strings.TrimSpace(request.CampaignID),
			SourceTopicID: request.SourceTopicID,
			Title:         request.Title,
			Keywords:      request.Keywords,
			Intent:        domain.SearchIntent(request.Intent),
			Outline:       request.Outline,
		})
		if err != nil {
			api.writeServiceError(w, r, err, "select topic")
			return
		}
		writeJSON(w, http.StatusOK, topic)
	default:
		methodNotAllowed(w, r)
	}
}

// TopicByID serves DELETE /v1/topics/{id}.
func (api *API) TopicByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r)
		return
	}
	identity, ok := workspaceIdentity(w, r)
	if !ok {
		return
	}
	topicID := pathID(r, "/v1/topics/")
	if topicID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "topic_id is required")
		return
	}

	topic, err := api.topics.Get(r.Context(), topicID)
	if err != nil {
		api.writeServiceError(w, r, err, "load topic")
		return
	}
	if topic.BrandID != identity.BrandID || topic.UserID != identity.UserID {
		writeError(w, r, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	if err := api.topics.Delete(r.Context(), topicID); err != nil {
		api.writeServiceError(w, r, err, "delete topic")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TopicResearch serves POST /v1/topics/research.
func (api *API) TopicResearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	identity, ok := workspaceIdentity(w, r)
	if !ok {
		return
	}

	var request researchRequest
	if !decodeAndValidate(w, r, &request) {
		return
	}
	output, err := api.research.Research(r.Context(), service.ResearchInput{
		UserID:     identity.UserID,
		BrandID:    identity.BrandID,
		CampaignID: strings.TrimSpace(request.CampaignID),
		Seed:       request.Seed,
		Count:      request.Count,
		Language:   strings.TrimSpace(request.Language),
	})
	if err != nil {
		api.writeServiceError(w, r, err, "research topics")
		return
	}
	writeJSON(w, http.StatusOK, output)
}
