// Package reconcile asks the server, once per asset and with bounded
// concurrency, whether a locally-known checksum already exists remotely,
// and writes the answer back into the registry.
package reconcile

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/picsync/internal/client/client"
	"github.com/dmitrijs2005/picsync/internal/client/models"
	"github.com/dmitrijs2005/picsync/internal/client/registry"
	"github.com/dmitrijs2005/picsync/internal/logging"
)

// DefaultPoolSize caps simultaneous in-flight existence lookups.
const DefaultPoolSize = 10

// lookup retry policy: capped exponential backoff, three attempts total.
const (
	retryBaseDelay  = 200 * time.Millisecond
	retryMaxRetries = 2
)

// Pool runs reconciliation passes over the registry's unchecked assets.
//
// Workers pull from a shared cursor, so a slow lookup never stalls the rest
// of the batch. Only one pass runs at a time: Run acts as a non-blocking
// try-lock, and triggers that arrive mid-pass are coalesced into a single
// follow-up pass once the current one completes.
type Pool struct {
	client   client.Client
	registry *registry.Registry
	logger   logging.Logger
	size     int

	inFlight atomic.Bool
	rerun    atomic.Bool
}

// New constructs a pool with DefaultPoolSize workers.
func New(apiClient client.Client, reg *registry.Registry, logger logging.Logger) *Pool {
	return NewWithSize(apiClient, reg, logger, DefaultPoolSize)
}

// NewWithSize is New with an explicit worker count.
func NewWithSize(apiClient client.Client, reg *registry.Registry, logger logging.Logger, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{client: apiClient, registry: reg, logger: logger, size: size}
}

// Run executes reconciliation passes until the registry has no unchecked
// assets left and no coalesced trigger is pending. If a pass is already in
// flight, Run records a follow-up trigger and returns immediately.
//
// Run returns the number of assets visited across all passes it drove. A
// failed lookup leaves its asset unknown and is never treated as absence.
func (p *Pool) Run(ctx context.Context) int {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.rerun.Store(true)
		return 0
	}

	visited := 0
	for {
		visited += p.runPass(ctx)

		// Clear the flag before checking for coalesced triggers so a
		// trigger racing with the check still gets its pass.
		p.inFlight.Store(false)
		if !p.rerun.Swap(false) {
			return visited
		}
		if !p.inFlight.CompareAndSwap(false, true) {
			// Someone else picked the trigger up already.
			return visited
		}
	}
}

// runPass checks every currently-unchecked asset exactly once.
func (p *Pool) runPass(ctx context.Context) int {
	checksums := p.registry.UncheckedChecksums()
	if len(checksums) == 0 {
		return 0
	}

	p.logger.Debug(ctx, "reconciliation pass starting",
		"assets", len(checksums), "workers", p.size)

	var cursor atomic.Int64
	var failures atomic.Int64

	var g errgroup.Group
	for w := 0; w < p.size; w++ {
		g.Go(func() error {
			for {
				if ctx.Err() != nil {
					return nil
				}
				n := cursor.Add(1) - 1
				if n >= int64(len(checksums)) {
					return nil
				}
				if err := p.checkOne(ctx, checksums[n]); err != nil {
					failures.Add(1)
					p.logger.Warn(ctx, "existence lookup failed; asset stays unknown",
						"checksum", checksums[n], "error", err)
				}
			}
		})
	}
	_ = g.Wait() // workers never return errors; failures are per-asset

	if n := failures.Load(); n > 0 {
		p.logger.Warn(ctx, "reconciliation pass finished with failures",
			"assets", len(checksums), "failures", n)
	} else {
		p.logger.Debug(ctx, "reconciliation pass finished", "assets", len(checksums))
	}
	return len(checksums)
}

// checkOne performs one lookup with retry/backoff and merges the result
// into the registry keyed by checksum, so out-of-order completion across
// different assets is harmless.
func (p *Pool) checkOne(ctx context.Context, checksum string) error {
	var result *client.ExistsResult

	backoff := retry.WithMaxRetries(retryMaxRetries, retry.NewExponential(retryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := p.client.CheckExists(ctx, checksum)
		if err != nil {
			return retry.RetryableError(err)
		}
		result = res
		return nil
	})
	if err != nil {
		return err
	}

	asset, ok := p.registry.Get(checksum)
	if !ok {
		// Removed from the registry mid-pass; nothing to merge.
		return nil
	}

	if result.RemoteID != "" {
		asset.Existence = models.ExistencePresent
		asset.RemoteID = result.RemoteID
		asset.RemoteDeletedAt = result.RemoteDeletedAt
	} else {
		asset.Existence = models.ExistenceAbsent
		asset.RemoteID = ""
		asset.RemoteDeletedAt = nil
	}
	p.registry.Dispatch(registry.UpdateAsset{Asset: &asset})
	return nil
}
