package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iago/content-orchestrator-back/internal/cache"
	"github.com/iago/content-orchestrator-back/internal/http/handlers"
	"github.com/iago/content-orchestrator-back/internal/http/middleware"
	"github.com/iago/content-orchestrator-back/internal/orchestrator"
	"github.com/iago/content-orchestrator-back/internal/queue"
	"github.com/iago/content-orchestrator-back/internal/repository"
	"github.com/iago/content-orchestrator-back/internal/service"
	"github.com/iago/content-orchestrator-back/internal/wordpress"
	"github.com/iago/content-orchestrator-back/internal/worker"
)

type testRuntime struct {
	server *httptest.Server
	client *http.Client
}

func startTestRuntime(t *testing.T) testRuntime {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	logger := log.New(io.Discard, "", 0)
	store := repository.NewMemoryStore()
	localQueue := queue.NewLocalQueue(64, 3, logger)
	listCache := cache.New(cache.Config{TTL: time.Minute})

	topics := service.NewTopicsService(store, listCache, logger)
	instructions := service.NewInstructionsService(store)
	jobs := service.NewGenerationJobsService(store, localQueue, logger)

	identity, err := wordpress.GenerateIdentity()
	require.NoError(t, err)
	sealer, err := wordpress.NewSealer(identity)
	require.NoError(t, err)

	// No model client: research and articles use the deterministic drafts.
	writer := service.NewArticleWriter(service.ArticleWriterDependencies{Logger: logger})
	processor := worker.NewProcessor(worker.ProcessorDependencies{
		Consumer:    localQueue,
		Sessions:    store,
		Articles:    store,
		Writer:      writer,
		Topics:      topics,
		Concurrency: 2,
		Logger:      logger,
	})
	go processor.Start(ctx)

	registry := orchestrator.NewRegistry(orchestrator.RegistryConfig{
		Submitter:    jobs,
		Sessions:     jobs,
		Instructions: instructions,
		Lists:        topics,
		PollInterval: 10 * time.Millisecond,
		BillingURL:   "https://billing.example.com",
		Logger:       logger,
	})

	api := handlers.NewAPI(handlers.Dependencies{
		Topics:       topics,
		Research:     service.NewResearchService(service.ResearchDependencies{Topics: topics, Logger: logger}),
		Instructions: instructions,
		Articles:     service.NewArticlesService(store, listCache),
		Proxy:        service.NewContentProxyService(store, sealer, wordpress.NewClient(wordpress.ClientConfig{}), logger),
		Registry:     registry,
		Logger:       logger,
	})
	router := NewRouter(RouterDependencies{
		API:            api,
		Logger:         logger,
		RateLimitRPS:   20000,
		RateLimitBurst: 20000,
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		registry.Close()
		cancel()
	})
	return testRuntime{server: server, client: server.Client()}
}

func (rt testRuntime) do(t *testing.T, method, path string, payload any, headers map[string]string) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}
	request, err := http.NewRequest(method, rt.server.URL+path, body)
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(middleware.UserIDHeader, "user-1")
	request.Header.Set(middleware.BrandIDHeader, "brand-1")
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := rt.client.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()

	raw, _ := io.ReadAll(response.Body)
	decoded := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "decode body (%d): %s", response.StatusCode, string(raw))
	}
	return response.StatusCode, decoded
}

func errorCode(body map[string]any) string {
	envelope, _ := body["error"].(map[string]any)
	code, _ := envelope["code"].(string)
	return code
}

func TestGenerationWorkflow(t *testing.T) {
	rt := startTestRuntime(t)

	status, body := rt.do(t, http.MethodPost, "/v1/topics/research", map[string]any{"seed": "home composting", "count": 3}, nil)
	require.Equal(t, http.StatusOK, status, body)
	suggestions, _ := body["topics"].([]any)
	require.Len(t, suggestions, 3)
	assert.Equal(t, true, body["used_fallback"])

	for _, item := range suggestions {
		suggestion := item.(map[string]any)
		status, body = rt.do(t, http.MethodPost, "/v1/topics", map[string]any{"source_topic_id": suggestion["id"]}, nil)
		require.Equal(t, http.StatusOK, status, body)
		assert.Equal(t, "selected", body["status"])
	}

	status, body = rt.do(t, http.MethodGet, "/v1/generation/selection", nil, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 0, body["count"])

	status, body = rt.do(t, http.MethodPost, "/v1/generation/selection", map[string]any{"action": "select_all"}, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 3, body["count"])
	assert.Equal(t, true, body["all_selected"])

	status, body = rt.do(t, http.MethodPatch, "/v1/generation/config", map[string]any{"word_count": 600, "featured_image_mode": "gallery_selection"}, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 600, body["word_count"])

	idempotency := map[string]string{"Idempotency-Key": "start-0001"}
	status, body = rt.do(t, http.MethodPost, "/v1/generation/start", map[string]any{"brand_name": "Acme"}, idempotency)
	require.Equal(t, http.StatusAccepted, status, body)
	session := body["session"].(map[string]any)
	sessionID, _ := session["id"].(string)
	require.NotEmpty(t, sessionID)
	assert.EqualValues(t, 3, session["total_articles"])

	status, body = rt.do(t, http.MethodPost, "/v1/generation/start", map[string]any{"brand_name": "Acme"}, idempotency)
	require.Equal(t, http.StatusAccepted, status, body)
	assert.Equal(t, true, body["replayed"])
	assert.Equal(t, sessionID, body["session"].(map[string]any)["id"])

	status, body = rt.do(t, http.MethodPost, "/v1/generation/start", map[string]any{"brand_name": "Other"}, idempotency)
	require.Equal(t, http.StatusConflict, status, body)
	assert.Equal(t, "idempotency_conflict", errorCode(body))

	require.Eventually(t, func() bool {
		_, current := rt.do(t, http.MethodGet, "/v1/generation/session", nil, nil)
		return current["status"] == "completed"
	}, 5*time.Second, 20*time.Millisecond)

	status, body = rt.do(t, http.MethodGet, "/v1/generation/session", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["completed_articles"])

	require.Eventually(t, func() bool {
		_, drained := rt.do(t, http.MethodGet, "/v1/notifications", nil, nil)
		items, _ := drained["notifications"].([]any)
		for _, item := range items {
			if item.(map[string]any)["kind"] == "success" {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)

	status, body = rt.do(t, http.MethodGet, "/v1/articles?session_id="+sessionID, nil, nil)
	require.Equal(t, http.StatusOK, status, body)
	articles, _ := body["articles"].([]any)
	assert.Len(t, articles, 3)

	status, body = rt.do(t, http.MethodGet, "/v1/generation/selection", nil, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 0, body["count"])

	status, body = rt.do(t, http.MethodDelete, "/v1/generation/session", nil, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "idle", body["status"])
}

func TestStartWithoutSelectedTopics(t *testing.T) {
	rt := startTestRuntime(t)

	status, body := rt.do(t, http.MethodPost, "/v1/generation/start", map[string]any{}, nil)
	require.Equal(t, http.StatusBadRequest, status, body)
	assert.Equal(t, "no_topics_selected", errorCode(body))

	status, body = rt.do(t, http.MethodGet, "/v1/generation/session", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "idle", body["status"])
}

func TestRequestValidation(t *testing.T) {
	rt := startTestRuntime(t)

	status, body := rt.do(t, http.MethodGet, "/v1/topics", nil, map[string]string{middleware.BrandIDHeader: ""})
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = rt.do(t, http.MethodPatch, "/v1/generation/config", map[string]any{"brand_mention_level": "loud"}, nil)
	assert.Equal(t, http.StatusBadRequest, status, body)
	assert.Equal(t, "invalid_request", errorCode(body))

	status, body = rt.do(t, http.MethodPost, "/v1/generation/selection", map[string]any{"action": "toggle"}, nil)
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = rt.do(t, http.MethodPost, "/v1/topics/research", map[string]any{"seed": "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = rt.do(t, http.MethodPut, "/v1/generation/start", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status, body)
}

func TestInstructionsAreScopedToUser(t *testing.T) {
	rt := startTestRuntime(t)

	status, body := rt.do(t, http.MethodPost, "/v1/instructions", map[string]any{"name": "Voice", "content": "Write short paragraphs."}, nil)
	require.Equal(t, http.StatusCreated, status, body)
	instructionID, _ := body["id"].(string)
	require.NotEmpty(t, instructionID)

	status, body = rt.do(t, http.MethodGet, "/v1/instructions/"+instructionID, nil, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Voice", body["name"])

	status, _ = rt.do(t, http.MethodGet, "/v1/instructions/"+instructionID, nil, map[string]string{middleware.UserIDHeader: "user-2"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = rt.do(t, http.MethodDelete, "/v1/instructions/"+instructionID, nil, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = rt.do(t, http.MethodGet, "/v1/instructions/"+instructionID, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWordPressProxyStatusMapping(t *testing.T) {
	rt := startTestRuntime(t)

	status, body := rt.do(t, http.MethodGet, "/v1/proxy/wordpress/post", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = rt.do(t, http.MethodGet, "/v1/proxy/wordpress/post?brand_id=brand-1&post_id=7", nil, nil)
	assert.Equal(t, http.StatusNotFound, status, body)

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/posts/7" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"id":7,"status":"publish","title":{"rendered":"Hello &amp; welcome"},"date_gmt":"2024-05-01T10:00:00","modified_gmt":"2024-05-02T10:00:00","link":"https://blog.example.com/hello"}`))
	}))
	defer site.Close()

	status, body = rt.do(t, http.MethodPut, "/v1/integrations/wordpress", map[string]any{
		"site_url": site.URL,
		"username": "editor",
		"password": "app password",
	}, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["connected"])
	assert.NotContains(t, body, "password")

	status, body = rt.do(t, http.MethodGet, "/v1/proxy/wordpress/post?post_id=7", nil, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Hello & welcome", body["title"])

	status, body = rt.do(t, http.MethodGet, "/v1/proxy/wordpress/post?brand_id=brand-1&post_id=7", nil, nil)
	require.Equal(t, http.StatusOK, status, body)

	// Another brand's credentials are never reachable through brand_id.
	status, body = rt.do(t, http.MethodGet, "/v1/proxy/wordpress/post?post_id=7", nil, map[string]string{middleware.BrandIDHeader: "brand-2"})
	assert.Equal(t, http.StatusNotFound, status, body)
	status, body = rt.do(t, http.MethodGet, "/v1/proxy/wordpress/post?brand_id=brand-1&post_id=7", nil, map[string]string{middleware.BrandIDHeader: "brand-2"})
	assert.Equal(t, http.StatusNotFound, status, body)
	assert.Equal(t, "not_found", errorCode(body))

	status, body = rt.do(t, http.MethodGet, "/v1/proxy/wordpress/post?post_id=8", nil, nil)
	assert.Equal(t, http.StatusNotFound, status, body)

	status, _ = rt.do(t, http.MethodDelete, "/v1/integrations/wordpress", nil, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, body = rt.do(t, http.MethodGet, "/v1/proxy/wordpress/post?post_id=7", nil, nil)
	assert.Equal(t, http.StatusNotFound, status, body)
}

func TestHealthCountsResidentWorkspaces(t *testing.T) {
	rt := startTestRuntime(t)

	status, body := rt.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["workspaces"])

	status, _ = rt.do(t, http.MethodGet, "/v1/generation/session", nil, nil)
	require.Equal(t, http.StatusOK, status)

	_, body = rt.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.EqualValues(t, 1, body["workspaces"])
}

func TestTopicDeleteIsScopedToUser(t *testing.T) {
	rt := startTestRuntime(t)

	status, body := rt.do(t, http.MethodPost, "/v1/topics/research", map[string]any{"seed": "rain gardens", "count": 1}, nil)
	require.Equal(t, http.StatusOK, status, body)
	suggestion := body["topics"].([]any)[0].(map[string]any)

	status, body = rt.do(t, http.MethodPost, "/v1/topics", map[string]any{"source_topic_id": suggestion["id"]}, nil)
	require.Equal(t, http.StatusOK, status, body)
	topicID, _ := body["id"].(string)
	require.NotEmpty(t, topicID)

	// Same brand, different user.
	status, _ = rt.do(t, http.MethodPost, "/v1/topics", map[string]any{"source_topic_id": suggestion["id"]}, map[string]string{middleware.UserIDHeader: "user-2"})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = rt.do(t, http.MethodDelete, "/v1/topics/"+topicID, nil, map[string]string{middleware.UserIDHeader: "user-2"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = rt.do(t, http.MethodDelete, "/v1/topics/"+topicID, nil, nil)
	assert.Equal(t, http.StatusNoContent, status)
}
