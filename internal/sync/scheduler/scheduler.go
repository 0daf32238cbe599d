// Package scheduler decides when synchronization passes run: after the
// device regains connectivity, on a polling interval, and on user request.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
	"github.com/kimhsiao/fieldcapture/backend/internal/logging"
	"github.com/kimhsiao/fieldcapture/backend/internal/models"
	syncpkg "github.com/kimhsiao/fieldcapture/backend/internal/sync"
)

// PendingCounter reports the size of the offline queue.
type PendingCounter interface {
	CountUnsynced(ctx context.Context) (models.PendingCount, error)
}

// Prober checks connectivity to the remote backend.
type Prober interface {
	Online(ctx context.Context) bool
}

// Config holds coordinator timing.
type Config struct {
	PollInterval time.Duration // How often to check for pending work (default: 30 seconds)
	SettleDelay  time.Duration // Wait after reconnecting before syncing (default: 2 seconds)
}

// DefaultConfig returns default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval: 30 * time.Second,
		SettleDelay:  2 * time.Second,
	}
}

// Status is a snapshot of the coordinator state.
type Status struct {
	Online       bool                `json:"online"`
	Syncing      bool                `json:"syncing"`
	Pending      models.PendingCount `json:"pending"`
	LastResult   *models.SyncResult  `json:"last_result,omitempty"`
	LastSyncTime *time.Time          `json:"last_sync_time,omitempty"`
}

// Coordinator owns the network state and the syncing flag. One Coordinator is
// constructed at startup; presentation layers observe it via Status and
// Subscribe.
type Coordinator struct {
	engine  syncpkg.Syncer
	counter PendingCounter
	prober  Prober
	config  Config
	cron    *cron.Cron

	mu           sync.RWMutex
	online       bool
	syncing      bool
	pending      models.PendingCount
	lastResult   *models.SyncResult
	lastSyncTime time.Time
	settle       *time.Timer
	settleGen    int
	running      bool
	stopped      bool
	baseCtx      context.Context
	cancel       context.CancelFunc
	passes       sync.WaitGroup

	listenersMu  sync.RWMutex
	listeners    map[int]Listener
	nextListener int
}

// NewCoordinator creates a Coordinator. prober may be nil, in which case
// connectivity only changes through SetOnline. The coordinator starts online.
func NewCoordinator(engine syncpkg.Syncer, counter PendingCounter, prober Prober, config Config) *Coordinator {
	defaults := DefaultConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.SettleDelay <= 0 {
		config.SettleDelay = defaults.SettleDelay
	}

	c := &Coordinator{
		engine:    engine,
		counter:   counter,
		prober:    prober,
		config:    config,
		online:    true,
		baseCtx:   context.Background(),
		listeners: make(map[int]Listener),
	}
	engine.SetProgressHandler(func(p syncpkg.Progress) {
		c.emit(Event{Type: EventSyncProgress, Progress: &p})
	})
	return c
}

// Start begins polling. Calling Start twice is a no-op.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	c.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	schedule := fmt.Sprintf("@every %s", c.config.PollInterval)
	if _, err := c.cron.AddFunc(schedule, c.poll); err != nil {
		return errors.Wrap(errors.ErrConfig, "invalid poll interval", err)
	}

	c.baseCtx, c.cancel = context.WithCancel(ctx)
	c.cron.Start()
	c.running = true
	c.stopped = false

	logging.Info("Sync coordinator started", map[string]interface{}{
		"poll_interval": c.config.PollInterval.String(),
		"settle_delay":  c.config.SettleDelay.String(),
	})
	return nil
}

// Stop cancels pending triggers, refuses new passes and waits for the
// pass in flight, if any, to finish.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.settleGen++
	if c.settle != nil {
		c.settle.Stop()
		c.settle = nil
	}
	wasRunning := c.running
	c.running = false
	cancel := c.cancel
	cr := c.cron
	c.mu.Unlock()

	if wasRunning {
		cancel()
		<-cr.Stop().Done()
	}
	c.passes.Wait()

	if wasRunning {
		logging.Info("Sync coordinator stopped", nil)
	}
}

// SetOnline records a connectivity change reported by the platform. Going
// online schedules a pass after the settle delay; going offline before it
// fires cancels it.
func (c *Coordinator) SetOnline(online bool) {
	c.mu.Lock()
	if c.online == online {
		c.mu.Unlock()
		return
	}
	c.online = online
	c.settleGen++
	if c.settle != nil {
		c.settle.Stop()
		c.settle = nil
	}
	if online {
		gen := c.settleGen
		c.settle = time.AfterFunc(c.config.SettleDelay, func() { c.onSettled(gen) })
	}
	c.mu.Unlock()

	logging.Info("Network state changed", map[string]interface{}{"online": online})
	c.emit(Event{Type: EventNetworkChanged, Online: &online})
}

// IsOnline reports the last known connectivity.
func (c *Coordinator) IsOnline() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online
}

func (c *Coordinator) onSettled(gen int) {
	c.mu.Lock()
	if gen != c.settleGen || !c.online {
		c.mu.Unlock()
		return
	}
	c.settle = nil
	ctx := c.baseCtx
	c.mu.Unlock()

	c.autoSync(ctx, "reconnect")
}

// poll is the cron job body.
func (c *Coordinator) poll() {
	c.mu.RLock()
	ctx := c.baseCtx
	c.mu.RUnlock()

	if c.prober != nil {
		c.SetOnline(c.prober.Online(ctx))
	}
	c.autoSync(ctx, "poll")
}

// autoSync runs a pass if online, idle and there is pending work.
func (c *Coordinator) autoSync(ctx context.Context, trigger string) {
	c.mu.RLock()
	skip := !c.online || c.syncing || c.stopped
	c.mu.RUnlock()
	if skip {
		return
	}

	pending, err := c.RefreshPending(ctx)
	if err != nil || pending.IsZero() {
		return
	}

	if _, err := c.run(ctx, trigger); err != nil && !errors.Is(err, errors.ErrSyncInProgress) {
		logging.ErrorWithCode("Automatic sync failed", string(errors.CodeOf(err)), err,
			map[string]interface{}{"trigger": trigger})
	}
}

// TriggerSync runs a pass on explicit user request and waits for it.
// It fails with SYNC_IN_PROGRESS while another pass runs and with OFFLINE
// when the device is offline. With nothing pending it returns a successful
// zero-work result without running a pass.
func (c *Coordinator) TriggerSync(ctx context.Context) (*models.SyncResult, error) {
	c.mu.RLock()
	online, syncing := c.online, c.syncing
	c.mu.RUnlock()

	if syncing {
		return nil, errors.New(errors.ErrSyncInProgress, "sync already in progress")
	}
	if !online {
		return nil, errors.New(errors.ErrOffline, "device is offline")
	}

	pending, err := c.RefreshPending(ctx)
	if err != nil {
		return nil, err
	}
	if pending.IsZero() {
		result := models.NewSyncResult()
		result.Finish()
		return result, nil
	}
	return c.run(ctx, "manual")
}

// run executes one pass with the syncing flag held. Once started, the pass
// is detached from ctx and runs to completion.
func (c *Coordinator) run(ctx context.Context, trigger string) (*models.SyncResult, error) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil, errors.New(errors.ErrSyncFailed, "sync coordinator stopped")
	}
	if c.syncing {
		c.mu.Unlock()
		return nil, errors.New(errors.ErrSyncInProgress, "sync already in progress")
	}
	c.syncing = true
	c.passes.Add(1)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.syncing = false
		c.mu.Unlock()
		c.passes.Done()
	}()

	ctx = context.WithoutCancel(ctx)
	c.emit(Event{Type: EventSyncStarted, Trigger: trigger})

	result, err := c.engine.SyncAll(ctx)
	if err != nil {
		c.emit(Event{Type: EventSyncFailed, Trigger: trigger, Error: err.Error()})
		return nil, err
	}

	c.mu.Lock()
	c.lastResult = result
	c.lastSyncTime = result.FinishedAt
	c.mu.Unlock()

	c.emit(Event{Type: EventSyncCompleted, Trigger: trigger, Result: result})
	c.RefreshPending(ctx)
	return result, nil
}

// RefreshPending re-reads the queue size and notifies listeners on change.
func (c *Coordinator) RefreshPending(ctx context.Context) (models.PendingCount, error) {
	count, err := c.counter.CountUnsynced(ctx)
	if err != nil {
		logging.Warn("Failed to count pending records", map[string]interface{}{"error": err.Error()})
		return models.PendingCount{}, err
	}

	c.mu.Lock()
	changed := c.pending != count
	c.pending = count
	c.mu.Unlock()

	if changed {
		c.emit(Event{Type: EventPendingChanged, Pending: &count})
	}
	return count, nil
}

// Status returns a snapshot of the coordinator state.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := Status{
		Online:     c.online,
		Syncing:    c.syncing,
		Pending:    c.pending,
		LastResult: c.lastResult,
	}
	if !c.lastSyncTime.IsZero() {
		t := c.lastSyncTime
		status.LastSyncTime = &t
	}
	return status
}

// IsRunning returns whether polling is active.
func (c *Coordinator) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}
