package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iago/content-orchestrator-back/internal/http/middleware"
	"github.com/iago/content-orchestrator-back/internal/orchestrator"
	"github.com/iago/content-orchestrator-back/internal/policy"
	"github.com/iago/content-orchestrator-back/internal/repository"
	"github.com/iago/content-orchestrator-back/internal/service"
	"github.com/iago/content-orchestrator-back/internal/wordpress"
)

const idempotencyTTL = 24 * time.Hour

var (
	errInvalidPayload  = errors.New("invalid payload")
	errMissingIdentity = errors.New("missing workspace identity")

	payloadValidator = newPayloadValidator()
)

// Dependencies are the services the HTTP layer talks to.
type Dependencies struct {
	Topics       *service.TopicsService
	Research     *service.ResearchService
	Instructions *service.InstructionsService
	Articles     *service.ArticlesService
	Proxy        *service.ContentProxyService
	Registry     *orchestrator.Registry
	// DefaultBrandName is used when a start request names no brand.
	DefaultBrandName string
	Logger           *log.Logger
}

type API struct {
	topics       *service.TopicsService
	research     *service.ResearchService
	instructions *service.InstructionsService
	articles     *service.ArticlesService
	proxy        *service.ContentProxyService
	registry     *orchestrator.Registry
	brandName    string
	logger       *log.Logger
	idempotency  *idempotencyStore
}

func NewAPI(deps Dependencies) *API {
	return &API{
		topics:       deps.Topics,
		research:     deps.Research,
		instructions: deps.Instructions,
		articles:     deps.Articles,
		proxy:        deps.Proxy,
		registry:     deps.Registry,
		brandName:    deps.DefaultBrandName,
		logger:       deps.Logger,
		idempotency:  newIdempotencyStore(),
	}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

// writeServiceError maps service and orchestrator errors onto the error
// envelope.
func (api *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var violation *policy.PolicyViolationError
	switch {
	case errors.As(err, &violation):
		message := "request blocked by policy"
		if len(violation.Violations) > 0 {
			message = violation.Violations[0].Message
		}
		writeError(w, r, http.StatusUnprocessableEntity, "policy_violation", message)
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "invalid_request", strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": "))
	case errors.Is(err, orchestrator.ErrNoTopicsSelected):
		writeError(w, r, http.StatusBadRequest, "no_topics_selected", err.Error())
	case errors.Is(err, orchestrator.ErrSessionRunning):
		writeError(w, r, http.StatusConflict, "session_running", err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, service.ErrIntegrationUnavailable):
		writeError(w, r, http.StatusNotFound, "integration_unavailable", err.Error())
	case errors.Is(err, wordpress.ErrPostNotFound):
		writeError(w, r, http.StatusNotFound, "post_not_found", err.Error())
	default:
		api.logf("request failed request_id=%s action=%q err=%v", middleware.GetRequestID(r.Context()), action, err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}

// decodeAndValidate decodes the body and runs the struct validation tags.
// It writes the 400 response itself and reports whether the caller may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, value any) bool {
	if err := decodeJSON(r, value); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return false
	}
	if err := payloadValidator.Struct(value); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return false
	}
	return true
}

func newPayloadValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}
	return v
}

func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return "invalid payload"
	}
	first := validationErrors[0]
	switch first.Tag() {
	case "required", "notblank":
		return first.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must have at most %s chars", first.Field(), first.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", first.Field(), first.Param())
	case "gt", "gte", "min", "lte":
		return fmt.Sprintf("%s is out of range", first.Field())
	default:
		return first.Field() + " is invalid"
	}
}

// workspaceIdentity returns the (user, brand) pair of the request or writes
// a 400 when either header is missing.
func workspaceIdentity(w http.ResponseWriter, r *http.Request) (middleware.WorkspaceIdentity, bool) {
	identity := middleware.GetWorkspace(r.Context())
	if !identity.Complete() {
		writeError(w, r, http.StatusBadRequest, "invalid_request",
			middleware.UserIDHeader+" and "+middleware.BrandIDHeader+" headers are required")
		return identity, false
	}
	return identity, true
}

// pathID extracts the trailing id of /prefix/{id} routes.
func pathID(r *http.Request, prefix string) string {
	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, prefix))
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

func (api *API) logf(format string, args ...any) {
	if api.logger == nil {
		return
	}
	api.logger.Printf(format, args...)
}

type idempotencyEntry struct {
	PayloadHash uint64
	SessionID   string
	CreatedAt   time.Time
}

type idempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
}

func newIdempotencyStore() *idempotencyStore {
	return &idempotencyStore{
		entries: make(map[string]idempotencyEntry),
	}
}

func (s *idempotencyStore) Get(key string) (idempotencyEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if ok && time.Since(entry.CreatedAt) > idempotencyTTL {
		delete(s.entries, key)
		return idempotencyEntry{}, false
	}
	return entry, ok
}

func (s *idempotencyStore) Put(key string, payloadHash uint64, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = idempotencyEntry{
		PayloadHash: payloadHash,
		SessionID:   sessionID,
		CreatedAt:   time.Now().UTC(),
	}
}

func hashPayload(value any) uint64 {
	payload, _ := json.Marshal(value)
	hasher := fnv.New64a()
	_, _ = hasher.Write(payload)
	return hasher.Sum64()
}
