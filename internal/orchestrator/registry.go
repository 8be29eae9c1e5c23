package orchestrator

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/iago/content-orchestrator-back/internal/notify"
)

type WorkspaceKey struct {
	UserID  string
	BrandID string
}

// Workspace bundles the generation state of one user and brand.
type Workspace struct {
	Key        WorkspaceKey
	Config     *ConfigStore
	Selection  *Selection
	Controller *Controller
	Reconciler *Reconciler
	Feed       *notify.Feed

	detach   func()
	lastUsed time.Time
}

// Start submits the currently selected topics with the current
// configuration.
func (w *Workspace) Start(ctx context.Context, brandName string, premium bool) (SessionSnapshot, error) {
	return w.Controller.StartGeneration(ctx, StartParams{
		Topics:    w.Selection.SelectedTopics(),
		Config:    w.Config.Snapshot(),
		UserID:    w.Key.UserID,
		BrandID:   w.Key.BrandID,
		BrandName: brandName,
		Premium:   premium,
	})
}

func (w *Workspace) close() {
	if w.detach != nil {
		w.detach()
	}
	w.Controller.Close()
}

type RegistryConfig struct {
	Submitter       Submitter
	Sessions        SessionSource
	Instructions    InstructionSource
	Lists           ListInvalidator
	PollInterval    time.Duration
	BillingURL      string
	NotificationCap int
	// IdleTTL is how long an unused workspace without a running session
	// stays resident. Zero means 30 minutes.
	IdleTTL time.Duration
	Logger  *log.Logger
}

const defaultWorkspaceIdleTTL = 30 * time.Minute

// Registry owns the workspaces of the process. Workspaces are created on
// first use and evicted once idle for IdleTTL with no session running.
type Registry struct {
	cfg RegistryConfig

	mu         sync.Mutex
	workspaces map[WorkspaceKey]*Workspace

	stop      chan struct{}
	closeOnce sync.Once
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultWorkspaceIdleTTL
	}
	r := &Registry{
		cfg:        cfg,
		workspaces: make(map[WorkspaceKey]*Workspace),
		stop:       make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

func (r *Registry) sweepLoop() {
	every := min(r.cfg.IdleTTL/2, time.Minute)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// Sweep evicts workspaces idle since before now-IdleTTL whose session is not
// running, and returns how many were evicted.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	var evicted []*Workspace
	for key, workspace := range r.workspaces {
		if now.Sub(workspace.lastUsed) <= r.cfg.IdleTTL {
			continue
		}
		if workspace.Controller.Snapshot().Status == domain.SessionRunning {
			continue
		}
		delete(r.workspaces, key)
		evicted = append(evicted, workspace)
	}
	r.mu.Unlock()

	for _, workspace := range evicted {
		workspace.close()
	}
	if len(evicted) > 0 {
		r.logf("evicted idle workspaces count=%d", len(evicted))
	}
	return len(evicted)
}

func (r *Registry) Workspace(userID, brandID string) *Workspace {
	key := WorkspaceKey{UserID: userID, BrandID: brandID}
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if workspace, ok := r.workspaces[key]; ok {
		workspace.lastUsed = now
		return workspace
	}

	feed := notify.NewFeed(r.cfg.NotificationCap)
	selection := NewSelection(nil, false)
	controller := NewController(ControllerConfig{
		Submitter:    r.cfg.Submitter,
		Sessions:     r.cfg.Sessions,
		Resolver:     NewResolver(r.cfg.Instructions, r.cfg.Logger),
		Feed:         feed,
		PollInterval: r.cfg.PollInterval,
		BillingURL:   r.cfg.BillingURL,
		Logger:       r.cfg.Logger,
	})
	reconciler := NewReconciler(ReconcilerConfig{
		BrandID:    brandID,
		Selection:  selection,
		Feed:       feed,
		Lists:      r.cfg.Lists,
		BillingURL: r.cfg.BillingURL,
		Logger:     r.cfg.Logger,
	})

	workspace := &Workspace{
		Key:        key,
		Config:     NewConfigStore(),
		Selection:  selection,
		Controller: controller,
		Reconciler: reconciler,
		Feed:       feed,
		detach:     reconciler.Attach(controller),
		lastUsed:   now,
	}
	r.workspaces[key] = workspace
	return workspace
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Close stops the sweeper and every session watcher.
func (r *Registry) Close() {
	r.closeOnce.Do(func() { close(r.stop) })

	r.mu.Lock()
	workspaces := make([]*Workspace, 0, len(r.workspaces))
	for _, workspace := range r.workspaces {
		workspaces = append(workspaces, workspace)
	}
	r.workspaces = make(map[WorkspaceKey]*Workspace)
	r.mu.Unlock()

	for _, workspace := range workspaces {
		workspace.close()
	}
}

func (r *Registry) logf(format string, args ...any) {
	if r.cfg.Logger != nil {
		r.cfg.Logger.Printf(format, args...)
	}
}
