package orchestrator

import (
	"log"
	"sync"

	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/iago/content-orchestrator-back/internal/metrics"
	"github.com/iago/content-orchestrator-back/internal/notify"
)

// ListInvalidator drops cached topic and article listings of a brand.
type ListInvalidator interface {
	InvalidateLists(brandID string)
}

type ReconcilerConfig struct {
	BrandID    string
	Selection  *Selection
	Feed       *notify.Feed
	Lists      ListInvalidator
	BillingURL string
	Logger     *log.Logger
}

// Reconciler reacts to terminal session states. Each (session, status) pair
// is handled once.
type Reconciler struct {
	brandID    string
	selection  *Selection
	feed       *notify.Feed
	lists      ListInvalidator
	billingURL string
	logger     *log.Logger

	mu         sync.Mutex
	lastID     string
	lastStatus domain.SessionStatus
}

func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	feed := cfg.Feed
	if feed == nil {
		feed = notify.NewFeed(0)
	}
	return &Reconciler{
		brandID:    cfg.BrandID,
		selection:  cfg.Selection,
		feed:       feed,
		lists:      cfg.Lists,
		billingURL: cfg.BillingURL,
		logger:     cfg.Logger,
	}
}

// Attach subscribes the reconciler to controller transitions.
func (r *Reconciler) Attach(controller *Controller) func() {
	return controller.Subscribe(r.Observe)
}

func (r *Reconciler) Observe(snapshot SessionSnapshot) {
	if !snapshot.Status.Terminal() {
		return
	}

	r.mu.Lock()
	if snapshot.ID == r.lastID && snapshot.Status == r.lastStatus {
		r.mu.Unlock()
		return
	}
	r.lastID = snapshot.ID
	r.lastStatus = snapshot.Status
	r.mu.Unlock()

	metrics.SessionsFinished.WithLabelValues(string(snapshot.Status)).Inc()

	switch snapshot.Status {
	case domain.SessionCompleted:
		if r.lists != nil {
			r.lists.InvalidateLists(r.brandID)
		}
		if r.selection != nil {
			r.selection.DeselectAll()
		}
		r.feed.Push(notify.SessionCompleted(snapshot.CompletedArticles))
		r.logf("generation session completed session_id=%s articles=%d/%d", snapshot.ID, snapshot.CompletedArticles, snapshot.TotalArticles)
	case domain.SessionError:
		r.feed.Push(notify.SessionFailure(snapshot.ErrorMessage, r.billingURL))
		r.logf("generation session failed session_id=%s err=%s", snapshot.ID, snapshot.ErrorMessage)
	}
}

func (r *Reconciler) logf(format string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}
