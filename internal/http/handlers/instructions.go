package handlers

import (
	"net/http"

	"github.com/iago/content-orchestrator-back/internal/service"
)

type createInstructionRequest struct {
	Name    string `json:"name" validate:"notblank,max=120"`
	Content string `json:"content" validate:"notblank,max=4000"`
}

func (api *API) Instructions(w http.ResponseWriter, r *http.Request) {
	identity, ok := workspaceIdentity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		instructions, err := api.instructions.List(r.Context(), identity.UserID, identity.BrandID)
		if err != nil {
			api.writeServiceError(w, r, err, "list instructions")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"instructions": instructions})
	case http.MethodPost:
		var request createInstructionRequest
		if !decodeAndValidate(w, r, &request) {
			return
		}
		instruction, err := api.instructions.Create(r.Context(), service.CreateInstructionInput{
			UserID:  identity.UserID,
			BrandID: identity.BrandID,
			Name:    request.Name,
			Content: request.Content,
		})
		if err != nil {
			api.writeServiceError(w, r, err, "create instruction")
			return
		}
		writeJSON(w, http.StatusCreated, instruction)
	default:
		methodNotAllowed(w, r)
	}
}

// InstructionByID serves GET and DELETE on /v1/instructions/{id}. Instructions
// of other users are reported as missing.
func (api *API) InstructionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodDelete {
		methodNotAllowed(w, r)
		return
	}
	identity, ok := workspaceIdentity(w, r)
	if !ok {
		return
	}
	instructionID := pathID(r, "/v1/instructions/")
	if instructionID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "instruction_id is required")
		return
	}

	instruction, err := api.instructions.GetInstruction(r.Context(), instructionID)
	if err != nil {
		api.writeServiceError(w, r, err, "load instruction")
		return
	}
	if instruction.UserID != identity.UserID {
		writeError(w, r, http.StatusNotFound, "not_found", "resource not found")
		return
	}

	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, instruction)
		return
	}
	if err := api.instructions.Delete(r.Context(), instructionID); err != nil {
		api.writeServiceError(w, r, err, "delete instruction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
