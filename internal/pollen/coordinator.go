package pollen

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// State describes the coordinator's refresh history.
type State int

const (
	// StateUninitialized means no snapshot has been produced yet.
	StateUninitialized State = iota
	// StateReady means the most recent refresh succeeded.
	StateReady
	// StateDegraded means the most recent refresh failed and the previous
	// snapshot is being served instead.
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return "uninitialized"
	}
}

// fetchState tracks a cached reference resource explicitly instead of
// inferring it from whether the field was ever assigned.
type fetchState int

const (
	fetchNotFetched fetchState = iota
	fetchCached
	fetchRefreshFailed
)

// CoordinatorConfig bundles the dependencies of a Coordinator.
type CoordinatorConfig struct {
	Client *Client
	Clock  clockwork.Clock
	Logger *zap.SugaredLogger
}

// Coordinator merges the forecast and the reference catalogs into one
// immutable snapshot per refresh cycle. When a refresh fails and a previous
// snapshot exists, that snapshot keeps being served; the failure is only
// surfaced when there is nothing to fall back to.
type Coordinator struct {
	client *Client
	clock  clockwork.Clock
	log    *zap.SugaredLogger

	// refreshMu serializes refresh cycles so no two ever overlap.
	refreshMu sync.Mutex

	mu               sync.RWMutex
	state            State
	snapshot         *Snapshot
	pollenTypes      PollenTypeCatalog
	pollenTypesState fetchState
	levelDefs        LevelDefinitionCatalog
	levelDefsState   fetchState
}

// NewCoordinator creates a Coordinator in the Uninitialized state.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Coordinator{
		client:      cfg.Client,
		clock:       cfg.Clock,
		log:         cfg.Logger,
		pollenTypes: PollenTypeCatalog{},
		levelDefs:   LevelDefinitionCatalog{},
	}
}

// Refresh runs one refresh cycle: level definitions (best-effort, retried
// until cached), pollen types (attempted once per coordinator lifetime,
// failures downgraded to a warning), then the forecast. Only the forecast
// fetch drives the state machine. On forecast failure the previous snapshot
// is retained and nil is returned, unless no snapshot exists yet, in which
// case the error propagates.
func (co *Coordinator) Refresh(ctx context.Context) error {
	co.refreshMu.Lock()
	defer co.refreshMu.Unlock()

	co.mu.RLock()
	ldState := co.levelDefsState
	ptState := co.pollenTypesState
	co.mu.RUnlock()

	if ldState != fetchCached {
		defs := co.client.FetchLevelDefinitions(ctx)
		co.mu.Lock()
		if len(defs) > 0 {
			co.levelDefs = defs
			co.levelDefsState = fetchCached
		} else {
			co.levelDefsState = fetchRefreshFailed
		}
		co.mu.Unlock()
	}

	if ptState == fetchNotFetched {
		types, err := co.client.FetchPollenTypes(ctx)
		co.mu.Lock()
		if err != nil {
			// Forecast delivery must not depend on the measurement catalog.
			co.log.Warnw("pollen types fetch failed", "error", err)
			co.pollenTypes = PollenTypeCatalog{}
			co.pollenTypesState = fetchRefreshFailed
		} else {
			co.pollenTypes = types
			co.pollenTypesState = fetchCached
		}
		co.mu.Unlock()
	}

	payload, err := co.client.FetchForecast(ctx)
	if err != nil {
		co.mu.Lock()
		defer co.mu.Unlock()
		if co.snapshot == nil {
			// Nothing to fall back to; the caller decides what to do.
			return err
		}
		co.state = StateDegraded
		co.log.Warnw("forecast refresh failed, serving previous snapshot",
			"error", err, "fetched_at", co.snapshot.FetchedAt)
		return nil
	}

	co.mu.Lock()
	co.snapshot = &Snapshot{
		RegionID:         co.client.RegionID(),
		StartDate:        payload.StartDate,
		EndDate:          payload.EndDate,
		Text:             payload.Text,
		Levels:           payload.Levels,
		PollenTypes:      co.pollenTypes,
		LevelDefinitions: co.levelDefs,
		FetchedAt:        co.clock.Now().UTC(),
	}
	co.state = StateReady
	co.mu.Unlock()
	return nil
}

// Snapshot returns the current snapshot, or nil before the first successful
// refresh. The returned snapshot is immutable.
func (co *Coordinator) Snapshot() *Snapshot {
	co.mu.RLock()
	defer co.mu.RUnlock()
	return co.snapshot
}

// State returns the coordinator's current state.
func (co *Coordinator) State() State {
	co.mu.RLock()
	defer co.mu.RUnlock()
	return co.state
}
