// Package registry holds the single shared view of all known device assets
// and the current selection.
//
// The registry is the sole owner of DeviceAsset lifetime: entries are added,
// updated and removed only through Dispatch, every preview handle acquired
// during ingestion is released here, and all consumers (reconciliation pool,
// upload queue, display layer) read through accessor methods. Checksum is
// the primary key; there is never more than one entry per checksum.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/picsync/internal/client/models"
	"github.com/dmitrijs2005/picsync/internal/logging"
)

// DefaultUnselectDelay is the grace period before a selection that turned
// out to already exist remotely is removed from the selection set. The delay
// gives the user a moment to notice the state change.
const DefaultUnselectDelay = 700 * time.Millisecond

type Registry struct {
	mu sync.Mutex

	logger logging.Logger

	assets   []*models.DeviceAsset
	index    map[string]*models.DeviceAsset
	selected map[string]struct{}
	order    SortOrder

	unselectDelay  time.Duration
	unselectTimer  *time.Timer
	pendingInvalid map[string]struct{}

	closed bool
}

// New constructs an empty registry with ascending capture-time order and the
// default auto-unselect delay.
func New(logger logging.Logger) *Registry {
	return NewWithDelay(logger, DefaultUnselectDelay)
}

// NewWithDelay is New with an explicit auto-unselect delay. Used by tests
// and callers that want a different grace period.
func NewWithDelay(logger logging.Logger, delay time.Duration) *Registry {
	return &Registry{
		logger:        logger,
		index:         make(map[string]*models.DeviceAsset),
		selected:      make(map[string]struct{}),
		order:         SortAsc,
		unselectDelay: delay,
	}
}

// Dispatch applies a single action to the registry. The switch is
// exhaustive over the sealed Action set; an unknown action is a programming
// error and panics.
func (r *Registry) Dispatch(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	switch act := a.(type) {
	case AddAssets:
		r.applyAdd(act)
	case UpdateAsset:
		r.applyUpdate(act)
	case SetSelected:
		r.applySetSelected(act)
	case Unselect:
		r.applyUnselect(act)
	case SetSortOrder:
		r.order = act.Order
		r.resort()
	default:
		panic("registry: unhandled action type")
	}
}

func (r *Registry) applyAdd(act AddAssets) {
	added := 0
	for _, asset := range act.Assets {
		if asset == nil || asset.Checksum == "" {
			continue
		}
		if _, ok := r.index[asset.Checksum]; ok {
			// Same bytes already registered: drop silently, but free the
			// duplicate's preview right away so it does not leak.
			if err := asset.Preview.Release(); err != nil {
				r.logger.Warn(context.Background(), "failed to release duplicate preview",
					"checksum", asset.Checksum, "error", err)
			}
			continue
		}
		r.index[asset.Checksum] = asset
		r.assets = append(r.assets, asset)
		added++
	}
	if added > 0 {
		r.resort()
	}
	r.evaluateAutoUnselect()
}

func (r *Registry) applyUpdate(act UpdateAsset) {
	if act.Asset == nil {
		return
	}
	current, ok := r.index[act.Asset.Checksum]
	if !ok {
		r.logger.Warn(context.Background(), "update for unknown checksum ignored",
			"checksum", act.Asset.Checksum)
		return
	}

	// Copy the payload into the canonical struct so every holder of the
	// reference (upload queue included) observes the same state. The
	// preview handle stays with the canonical entry.
	preview := current.Preview
	*current = *act.Asset
	current.Preview = preview

	r.resort()
	r.evaluateAutoUnselect()
}

func (r *Registry) applySetSelected(act SetSelected) {
	next := make(map[string]struct{}, len(act.Checksums))
	for _, cs := range act.Checksums {
		if _, ok := r.index[cs]; ok {
			next[cs] = struct{}{}
		}
	}
	r.selected = next
	r.evaluateAutoUnselect()
}

func (r *Registry) applyUnselect(act Unselect) {
	for _, cs := range act.Checksums {
		delete(r.selected, cs)
	}
	r.evaluateAutoUnselect()
}

// resort restores the capturedAt sort invariant after any mutation that
// changes membership or order preference. The sort is stable, so assets
// with equal timestamps keep their insertion order.
func (r *Registry) resort() {
	asc := r.order == SortAsc
	sort.SliceStable(r.assets, func(i, j int) bool {
		if asc {
			return r.assets[i].CapturedAt.Before(r.assets[j].CapturedAt)
		}
		return r.assets[j].CapturedAt.Before(r.assets[i].CapturedAt)
	})
}

// evaluateAutoUnselect arms, re-arms or disarms the debounced removal of
// selections whose asset acquired a remote ID mid-session. One resettable
// timer, never a queue of timers: if the set of invalid selections changes
// before the delay fires, the timer restarts against the new set.
// Caller must hold r.mu.
func (r *Registry) evaluateAutoUnselect() {
	invalid := make(map[string]struct{})
	for cs := range r.selected {
		if asset, ok := r.index[cs]; ok && asset.HasRemote() {
			invalid[cs] = struct{}{}
		}
	}

	if len(invalid) == 0 {
		r.stopUnselectTimer()
		return
	}

	if setsEqual(invalid, r.pendingInvalid) {
		// Same condition, timer already running.
		return
	}

	r.stopUnselectTimer()
	r.pendingInvalid = invalid
	r.unselectTimer = time.AfterFunc(r.unselectDelay, r.fireAutoUnselect)
}

func (r *Registry) fireAutoUnselect() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	// Re-evaluate at fire time; the condition may have shifted again.
	removed := 0
	for cs := range r.selected {
		if asset, ok := r.index[cs]; ok && asset.HasRemote() {
			delete(r.selected, cs)
			removed++
		}
	}
	r.pendingInvalid = nil
	r.unselectTimer = nil

	if removed > 0 {
		r.logger.Debug(context.Background(), "auto-unselected assets that already exist remotely",
			"count", removed)
	}
}

func (r *Registry) stopUnselectTimer() {
	if r.unselectTimer != nil {
		r.unselectTimer.Stop()
		r.unselectTimer = nil
	}
	r.pendingInvalid = nil
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// Assets returns display-ordered copies of every registered asset.
func (r *Registry) Assets() []models.DeviceAsset {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.DeviceAsset, len(r.assets))
	for i, a := range r.assets {
		out[i] = *a
	}
	return out
}

// Get returns a copy of the asset with the given checksum.
func (r *Registry) Get(checksum string) (models.DeviceAsset, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	asset, ok := r.index[checksum]
	if !ok {
		return models.DeviceAsset{}, false
	}
	return *asset, true
}

// Len reports the number of registered assets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.assets)
}

// Order returns the configured sort order.
func (r *Registry) Order() SortOrder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order
}

// Selected returns the selected checksums in display order.
func (r *Registry) Selected() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.selected))
	for _, a := range r.assets {
		if _, ok := r.selected[a.Checksum]; ok {
			out = append(out, a.Checksum)
		}
	}
	return out
}

// IsSelected reports whether the checksum is currently selected.
func (r *Registry) IsSelected(checksum string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.selected[checksum]
	return ok
}

// RangeBetween returns the checksums between anchor and target in display
// order, inclusive of both endpoints. It implements shift-click range
// extension; the caller feeds the result to SetSelected. Returns nil when
// either endpoint is unknown.
func (r *Registry) RangeBetween(anchor, target string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	from, to := -1, -1
	for i, a := range r.assets {
		if a.Checksum == anchor {
			from = i
		}
		if a.Checksum == target {
			to = i
		}
	}
	if from == -1 || to == -1 {
		return nil
	}
	if from > to {
		from, to = to, from
	}

	out := make([]string, 0, to-from+1)
	for _, a := range r.assets[from : to+1] {
		out = append(out, a.Checksum)
	}
	return out
}

// UncheckedChecksums returns the checksums of every asset whose existence is
// still unknown, in display order. The reconciliation pool visits each of
// these exactly once per pass.
func (r *Registry) UncheckedChecksums() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, a := range r.assets {
		if a.Existence == models.ExistenceUnknown {
			out = append(out, a.Checksum)
		}
	}
	return out
}

// SelectedAbsent returns shared references to the selected assets confirmed
// absent remotely, in display order. The upload queue holds these references
// rather than copies, so existence state stays consistent across both views;
// mutable fields remain owned by the registry.
func (r *Registry) SelectedAbsent() []*models.DeviceAsset {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.DeviceAsset
	for _, a := range r.assets {
		if _, ok := r.selected[a.Checksum]; !ok {
			continue
		}
		if a.Existence == models.ExistenceAbsent && !a.HasRemote() {
			out = append(out, a)
		}
	}
	return out
}

// Close releases every preview handle and disarms the auto-unselect timer.
// The registry accepts no further actions afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.stopUnselectTimer()

	for _, a := range r.assets {
		if err := a.Preview.Release(); err != nil {
			r.logger.Warn(context.Background(), "failed to release preview",
				"checksum", a.Checksum, "error", err)
		}
	}
	r.assets = nil
	r.index = map[string]*models.DeviceAsset{}
	r.selected = map[string]struct{}{}
}
