// Package sync keeps the local email cache in step with the users' mailboxes.
package sync

import (
	"context"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/source"
	"github.com/nhle/trackmate/internal/store"
)

// SyncState represents the current state of a source sync operation.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// SyncStatus holds the sync state for a single registered source.
type SyncStatus struct {
	Key        string
	SourceType model.SourceType
	UserID     string
	State      SyncState
	LastSync   time.Time
	Summary    model.SyncSummary
	Error      error
}

// Result is published after every background sync pass.
type Result struct {
	Key     string
	UserID  string
	Summary model.SyncSummary
	Err     error
}

// fetchTimeout is the maximum time allowed for a single sync pass.
const fetchTimeout = 30 * time.Second

const defaultInterval = 300 * time.Second

// sourceEntry holds a registered source and its configuration.
type sourceEntry struct {
	key     string
	src     source.Source
	cfg     model.SourceConfig
	trigger chan struct{}
}

// Poller orchestrates background polling of registered sources.
type Poller struct {
	store          store.Store
	log            zerolog.Logger
	attentionLabel string
	sources        []*sourceEntry
	statuses       map[string]*SyncStatus
	resultCh       chan Result
	stopCh         chan struct{}
	wg             conc.WaitGroup
	mu             gosync.Mutex
	running        bool
}

// New creates a new Poller writing into s. attentionLabel names the label
// whose messages count as requiring attention.
func New(s store.Store, attentionLabel string, log zerolog.Logger) *Poller {
	if attentionLabel == "" {
		attentionLabel = model.LabelRequiresAttention
	}
	return &Poller{
		store:          s,
		log:            log.With().Str("component", "sync").Logger(),
		attentionLabel: attentionLabel,
		statuses:       make(map[string]*SyncStatus),
		resultCh:       make(chan Result, 16),
	}
}

// EntryKey identifies a registered source: the configured ID when present,
// otherwise "<type>:<user>".
func EntryKey(src source.Source, cfg model.SourceConfig) string {
	if cfg.ID != "" {
		return cfg.ID
	}
	return fmt.Sprintf("%s:%s", src.Type(), cfg.UserID)
}

// RegisterSource adds a source adapter and its configuration to the poller.
// Registering an existing key replaces its adapter. Sources registered
// after Start begin polling immediately.
func (p *Poller) RegisterSource(src source.Source, cfg model.SourceConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := EntryKey(src, cfg)
	for _, e := range p.sources {
		if e.key == key {
			e.src = src
			e.cfg = cfg
			return
		}
	}

	entry := &sourceEntry{key: key, src: src, cfg: cfg, trigger: make(chan struct{}, 1)}
	p.sources = append(p.sources, entry)
	p.statuses[key] = &SyncStatus{
		Key:        key,
		SourceType: src.Type(),
		UserID:     cfg.UserID,
		State:      SyncIdle,
	}

	if p.running {
		stop := p.stopCh
		p.wg.Go(func() { p.pollSource(entry, stop) })
	}
}

// Start launches one polling goroutine per registered source. A stopped
// poller can be started again.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})

	stop := p.stopCh
	for _, entry := range p.sources {
		p.wg.Go(func() { p.pollSource(entry, stop) })
	}
}

// Stop halts all polling goroutines and waits for in-flight passes.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
}

// Results returns the channel on which background pass outcomes are
// published. Results are dropped when nobody drains it.
func (p *Poller) Results() <-chan Result {
	return p.resultCh
}

// RefreshAll triggers an immediate poll of all registered sources.
func (p *Poller) RefreshAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, entry := range p.sources {
		select {
		case entry.trigger <- struct{}{}:
		default:
			// A refresh is already pending.
		}
	}
}

// RefreshSource triggers an immediate poll of a single source.
func (p *Poller) RefreshSource(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, entry := range p.sources {
		if entry.key == key {
			select {
			case entry.trigger <- struct{}{}:
			default:
			}
			return true
		}
	}
	return false
}

// GetStatuses returns the current sync status of all registered sources,
// ordered by key.
func (p *Poller) GetStatuses() []SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]SyncStatus, 0, len(p.statuses))
	for _, s := range p.statuses {
		statuses = append(statuses, *s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Key < statuses[j].Key })
	return statuses
}

// SyncOnce fetches the user's unread messages from the last day and the
// messages carrying the attention label, stores both, and reports counts.
func (p *Poller) SyncOnce(
	ctx context.Context,
	src source.Source,
	userID string,
) (model.SyncSummary, error) {
	unread := true
	recent, err := src.ListEmails(ctx, model.EmailFilter{IsUnread: &unread, TimeRange: "24h"})
	if err != nil {
		return model.SyncSummary{}, fmt.Errorf("fetching unread messages: %w", err)
	}

	attention, err := src.ListEmails(ctx, model.EmailFilter{Labels: []string{p.attentionLabel}})
	if err != nil {
		return model.SyncSummary{}, fmt.Errorf("fetching %s messages: %w", p.attentionLabel, err)
	}

	inserted, err := p.store.UpsertEmails(ctx, userID, append(recent, attention...))
	if err != nil {
		return model.SyncSummary{}, fmt.Errorf("storing messages: %w", err)
	}

	summary := model.SyncSummary{
		SyncedCount:       len(recent) + len(attention),
		NewUnread:         len(recent),
		RequiresAttention: len(attention),
		LastSync:          time.Now().UTC(),
	}

	p.log.Debug().
		Str("user_id", userID).
		Str("source", string(src.Type())).
		Int("synced", summary.SyncedCount).
		Int("inserted", inserted).
		Msg("sync pass complete")
	return summary, nil
}

// pollSource runs the polling loop for a single source.
func (p *Poller) pollSource(entry *sourceEntry, stop <-chan struct{}) {
	p.mu.Lock()
	interval := time.Duration(entry.cfg.PollIntervalSec) * time.Second
	p.mu.Unlock()
	if interval <= 0 {
		interval = defaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Do an initial fetch immediately
	p.fetchAndUpsert(entry)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.fetchAndUpsert(entry)
		case <-entry.trigger:
			p.fetchAndUpsert(entry)
		}
	}
}

// fetchAndUpsert performs a single sync pass and publishes its result.
func (p *Poller) fetchAndUpsert(entry *sourceEntry) {
	p.setStatus(entry.key, SyncRunning, model.SyncSummary{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	p.mu.Lock()
	src, userID := entry.src, entry.cfg.UserID
	p.mu.Unlock()

	summary, err := p.SyncOnce(ctx, src, userID)
	if err != nil {
		p.setStatus(entry.key, SyncError, model.SyncSummary{}, err)

		if source.IsAuthError(err) {
			p.log.Warn().Err(err).Str("source", entry.key).Msg("authentication expired; sign in again")
		} else {
			p.log.Error().Err(err).Str("source", entry.key).Msg("sync failed")
		}
		p.sendResult(Result{Key: entry.key, UserID: userID, Err: err})
		return
	}

	p.setStatus(entry.key, SyncIdle, summary, nil)
	p.sendResult(Result{Key: entry.key, UserID: userID, Summary: summary})
}

// setStatus updates the sync status for a source.
func (p *Poller) setStatus(key string, state SyncState, summary model.SyncSummary, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[key]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state == SyncIdle && err == nil {
		status.LastSync = summary.LastSync
		status.Summary = summary
	}
}

// sendResult publishes a Result without blocking.
func (p *Poller) sendResult(r Result) {
	select {
	case p.resultCh <- r:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}
