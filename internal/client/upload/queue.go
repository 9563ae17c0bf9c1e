// Package upload tracks the lifecycle of uploads for a batch of selected
// assets and drives the actual transfers.
package upload

import (
	"sync"

	"github.com/dmitrijs2005/picsync/internal/client/models"
)

// Status is the per-item upload state. It forms a linear state machine
// pending → uploading → (success | error); nothing leaves a terminal state
// except removal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// Item is one tracked upload. Asset is a shared reference into the
// registry, never an independent copy.
type Item struct {
	Asset  *models.DeviceAsset
	Status Status

	// Reason holds the human-readable failure cause for StatusError items.
	Reason string
}

// Stats is the aggregate queue view. It is derived on every call, never
// maintained as independent counters, so it cannot drift.
type Stats struct {
	Total     int
	Uploaded  int
	Errors    int
	Remaining int
	Processed int
}

// Queue is the upload queue manager. Safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	items []*Item
	index map[string]*Item
}

func NewQueue() *Queue {
	return &Queue{index: make(map[string]*Item)}
}

// AddAssets appends a pending item for each asset not already queued,
// deduplicating by checksum, and returns how many items were added.
func (q *Queue) AddAssets(assets []*models.DeviceAsset) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	added := 0
	for _, asset := range assets {
		if asset == nil || asset.Checksum == "" {
			continue
		}
		if _, ok := q.index[asset.Checksum]; ok {
			continue
		}
		item := &Item{Asset: asset, Status: StatusPending}
		q.items = append(q.items, item)
		q.index[asset.Checksum] = item
		added++
	}
	return added
}

// Remove drops the item with the given checksum regardless of state.
func (q *Queue) Remove(checksum string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.index[checksum]; !ok {
		return false
	}
	delete(q.index, checksum)
	for i, item := range q.items {
		if item.Asset.Checksum == checksum {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
	return true
}

// ClearCompleted drops every item in a terminal state, leaving pending and
// uploading items untouched. Returns the number of dropped items.
func (q *Queue) ClearCompleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	dropped := 0
	for _, item := range q.items {
		if item.Status == StatusSuccess || item.Status == StatusError {
			delete(q.index, item.Asset.Checksum)
			dropped++
			continue
		}
		kept = append(kept, item)
	}
	q.items = kept
	return dropped
}

// Items returns copies of every queued item in insertion order.
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Item, len(q.items))
	for i, item := range q.items {
		out[i] = *item
	}
	return out
}

// Stats projects the aggregate view from the current items.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Stats{Total: len(q.items)}
	for _, item := range q.items {
		switch item.Status {
		case StatusSuccess:
			s.Uploaded++
		case StatusError:
			s.Errors++
		}
	}
	s.Processed = s.Uploaded + s.Errors
	s.Remaining = s.Total - s.Processed
	return s
}

// claimNext transitions the first pending item to uploading and returns it.
// Returns nil when no pending item remains.
func (q *Queue) claimNext() *Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.Status == StatusPending {
			item.Status = StatusUploading
			return item
		}
	}
	return nil
}

// finish moves an uploading item into a terminal state. Items already in a
// terminal state, or removed from the queue, are left untouched.
func (q *Queue) finish(checksum string, status Status, reason string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.index[checksum]
	if !ok || item.Status != StatusUploading {
		return
	}
	item.Status = status
	item.Reason = reason
}
