package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/iago/content-orchestrator-back/internal/ai"
	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/iago/content-orchestrator-back/internal/metrics"
	"github.com/iago/content-orchestrator-back/internal/notify"
	"github.com/iago/content-orchestrator-back/internal/repository"
)

const (
	WorkflowPremium = "premium_article_generation"
	WorkflowBulk    = "bulk_article_generation"

	defaultPollInterval = 2 * time.Second

	// maxMissingPolls consecutive not-found answers end the session in
	// error; a store that lost the record will never report progress.
	maxMissingPolls = 3
)

// Submitter hands a request to the job runner and returns the session id
// once the runner has acknowledged it. It must not wait for completion.
type Submitter interface {
	Submit(ctx context.Context, request domain.GenerationRequest) (string, error)
}

// SessionSource reads the session record the job runner keeps up to date.
type SessionSource interface {
	GetSession(ctx context.Context, sessionID string) (*domain.GenerationSession, error)
}

type StartParams struct {
	Topics    []domain.Topic
	Config    domain.GenerationConfiguration
	UserID    string
	BrandID   string
	BrandName string
	Premium   bool
}

// SessionSnapshot is the observable state of the controller. Revision grows
// with every transition.
type SessionSnapshot struct {
	ID                string               `json:"id,omitempty"`
	Status            domain.SessionStatus `json:"status"`
	Topics            []domain.Topic       `json:"topics"`
	CompletedArticles int                  `json:"completed_articles"`
	TotalArticles     int                  `json:"total_articles"`
	ErrorMessage      string               `json:"error_message,omitempty"`
	StartedAt         time.Time            `json:"started_at,omitempty"`
	Revision          uint64               `json:"revision"`
}

// SessionUpdate is a status report from the job runner.
type SessionUpdate struct {
	SessionID         string
	Status            domain.SessionStatus
	CompletedArticles int
	ErrorMessage      string
}

func UpdateFromSession(session domain.GenerationSession) SessionUpdate {
	return SessionUpdate{
		SessionID:         session.ID,
		Status:            session.Status,
		CompletedArticles: session.CompletedArticles,
		ErrorMessage:      session.ErrorMessage,
	}
}

type ControllerConfig struct {
	Submitter    Submitter
	Sessions     SessionSource
	Resolver     *Resolver
	Feed         *notify.Feed
	PollInterval time.Duration
	BillingURL   string
	Logger       *log.Logger
}

// Controller runs the idle -> running -> completed|error state machine of
// one workspace. Only one session exists at a time.
type Controller struct {
	submitter    Submitter
	sessions     SessionSource
	resolver     *Resolver
	feed         *notify.Feed
	pollInterval time.Duration
	billingURL   string
	logger       *log.Logger

	mu        sync.Mutex
	state     SessionSnapshot
	starting  bool
	stopWatch context.CancelFunc

	subsMu      sync.Mutex
	subscribers map[int]func(SessionSnapshot)
	nextSub     int

	publishMu     sync.Mutex
	lastPublished uint64
}

func NewController(cfg ControllerConfig) *Controller {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	feed := cfg.Feed
	if feed == nil {
		feed = notify.NewFeed(0)
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = NewResolver(nil, cfg.Logger)
	}
	return &Controller{
		submitter:    cfg.Submitter,
		sessions:     cfg.Sessions,
		resolver:     resolver,
		feed:         feed,
		pollInterval: pollInterval,
		billingURL:   cfg.BillingURL,
		logger:       cfg.Logger,
		state:        SessionSnapshot{Status: domain.SessionIdle},
		subscribers:  make(map[int]func(SessionSnapshot)),
	}
}

func (c *Controller) Snapshot() SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// StartGeneration submits a new session and returns as soon as the job
// runner acknowledged it. Progress is tracked in the background.
func (c *Controller) StartGeneration(ctx context.Context, params StartParams) (SessionSnapshot, error) {
	if len(params.Topics) == 0 {
		metrics.SessionsStarted.WithLabelValues("rejected").Inc()
		return c.Snapshot(), ErrNoTopicsSelected
	}
	if c.submitter == nil {
		return c.Snapshot(), errors.New("generation submitter not configured")
	}

	c.mu.Lock()
	if c.starting || c.state.Status == domain.SessionRunning {
		c.mu.Unlock()
		metrics.SessionsStarted.WithLabelValues("rejected").Inc()
		return c.Snapshot(), ErrSessionRunning
	}
	var superseded *SessionSnapshot
	if c.state.Status.Terminal() {
		c.resetLocked()
		snapshot := c.state.clone()
		superseded = &snapshot
	}
	c.starting = true
	c.mu.Unlock()

	if superseded != nil {
		c.publish(*superseded)
	}

	customPrompt := c.resolver.Resolve(ctx, params.Config.CustomInstructionID)
	request := BuildRequest(params, customPrompt)

	sessionID, err := c.submitter.Submit(ctx, request)
	if err != nil {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()

		metrics.SessionsStarted.WithLabelValues("failed").Inc()
		c.logf("generation submit failed user_id=%s brand_id=%s topics=%d err=%v", params.UserID, params.BrandID, len(params.Topics), err)
		c.feed.Push(notify.SubmissionFailure(err, c.billingURL))
		return c.Snapshot(), fmt.Errorf("submit generation: %w", err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.starting = false
	c.state = SessionSnapshot{
		ID:            sessionID,
		Status:        domain.SessionRunning,
		Topics:        cloneTopics(params.Topics),
		TotalArticles: len(params.Topics),
		StartedAt:     time.Now().UTC(),
		Revision:      c.state.Revision + 1,
	}
	c.stopWatch = cancel
	snapshot := c.state.clone()
	c.mu.Unlock()

	metrics.SessionsStarted.WithLabelValues("accepted").Inc()
	c.logf("generation session started session_id=%s brand_id=%s topics=%d", sessionID, params.BrandID, len(params.Topics))
	c.publish(snapshot)

	go c.watch(watchCtx, sessionID)
	return snapshot, nil
}

// ApplyRemote stores a status reported by the job runner. Updates for other
// sessions and updates after a terminal status are ignored.
func (c *Controller) ApplyRemote(update SessionUpdate) bool {
	c.mu.Lock()
	if c.state.ID == "" || update.SessionID != c.state.ID || c.state.Status.Terminal() {
		c.mu.Unlock()
		return false
	}
	if update.Status != domain.SessionRunning && !update.Status.Terminal() {
		c.mu.Unlock()
		return false
	}
	if update.Status == c.state.Status && update.CompletedArticles == c.state.CompletedArticles {
		c.mu.Unlock()
		return false
	}

	c.state.Status = update.Status
	c.state.CompletedArticles = update.CompletedArticles
	c.state.ErrorMessage = update.ErrorMessage
	c.state.Revision++
	if update.Status.Terminal() && c.stopWatch != nil {
		c.stopWatch()
		c.stopWatch = nil
	}
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.publish(snapshot)
	return true
}

// ClearSession returns to idle. Remote work already submitted is not
// affected.
func (c *Controller) ClearSession() SessionSnapshot {
	c.mu.Lock()
	c.resetLocked()
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.publish(snapshot)
	return snapshot
}

// Subscribe registers fn for every published transition. The returned func
// removes the subscription.
func (c *Controller) Subscribe(fn func(SessionSnapshot)) func() {
	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	c.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subscribers, id)
			c.subsMu.Unlock()
		})
	}
}

// Close stops the background watcher, if any.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.stopWatch != nil {
		c.stopWatch()
		c.stopWatch = nil
	}
	c.mu.Unlock()
}

func (c *Controller) watch(ctx context.Context, sessionID string) {
	if c.sessions == nil {
		return
	}
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	missing := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		session, err := c.sessions.GetSession(ctx, sessionID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, repository.ErrNotFound) {
				missing++
				if missing >= maxMissingPolls {
					c.logf("session record missing, giving up session_id=%s polls=%d", sessionID, missing)
					c.ApplyRemote(SessionUpdate{
						SessionID:         sessionID,
						Status:            domain.SessionError,
						CompletedArticles: c.Snapshot().CompletedArticles,
						ErrorMessage:      "generation session record not found",
					})
					return
				}
				continue
			}
			c.logf("session poll failed session_id=%s err=%v", sessionID, err)
			continue
		}
		missing = 0
		if session == nil {
			continue
		}
		c.ApplyRemote(UpdateFromSession(*session))
		if session.Status.Terminal() {
			return
		}
	}
}

func (c *Controller) resetLocked() {
	if c.stopWatch != nil {
		c.stopWatch()
		c.stopWatch = nil
	}
	c.state = SessionSnapshot{Status: domain.SessionIdle, Revision: c.state.Revision + 1}
}

// publish delivers snapshots in revision order; a snapshot older than the
// last delivered one is dropped.
func (c *Controller) publish(snapshot SessionSnapshot) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	if snapshot.Revision <= c.lastPublished {
		return
	}
	c.lastPublished = snapshot.Revision

	c.subsMu.Lock()
	subscribers := make([]func(SessionSnapshot), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subscribers = append(subscribers, fn)
	}
	c.subsMu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot.clone())
	}
}

func (c *Controller) logf(format string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Printf(format, args...)
}

func (s SessionSnapshot) clone() SessionSnapshot {
	clone := s
	clone.Topics = cloneTopics(s.Topics)
	return clone
}

// BuildRequest assembles the job payload. It has no side effects.
func BuildRequest(params StartParams, customPrompt string) domain.GenerationRequest {
	config := params.Config

	model := ai.ModelStandard
	workflow := WorkflowBulk
	if params.Premium {
		model = ai.ModelPremium
		workflow = WorkflowPremium
	}

	settings := make(map[string]any, len(config.ContentSettings)+3)
	for key, value := range config.ContentSettings {
		settings[key] = value
	}
	settings["brand_mentions"] = string(config.BrandMentionLevel)
	settings["competitor_mentions"] = string(config.CompetitorMentionLevel)
	settings["use_brand_info"] = config.BrandMentionLevel != domain.MentionNone

	return domain.GenerationRequest{
		Topics:            cloneTopics(params.Topics),
		Language:          config.Language,
		WordCount:         config.WordCount,
		Tone:              config.Tone,
		IncludeIntro:      true,
		IncludeConclusion: true,
		IncludeFAQ:        false,
		FeaturedImage:     config.FeaturedImageMode,
		Model:             model,
		CustomPrompt:      customPrompt,
		BrandID:           params.BrandID,
		BrandName:         params.BrandName,
		UserID:            params.UserID,
		WorkflowType:      workflow,
		ContentSettings:   settings,
	}
}
