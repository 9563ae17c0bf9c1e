package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/picsync/internal/client/registry"
	"github.com/dmitrijs2005/picsync/internal/client/upload"
)

// Check runs a reconciliation pass over every asset whose server-side
// existence is still unknown.
func (a *App) Check(ctx context.Context) {
	visited := a.pool.Run(ctx)
	if visited == 0 {
		fmt.Println("Nothing to check (a pass may already be running).")
		return
	}
	unresolved := len(a.registry.UncheckedChecksums())
	fmt.Printf("Checked %d asset(s), %d still unresolved.\n", visited, unresolved)
}

// UploadSelected queues every selected asset confirmed absent remotely and
// drains the queue. The selection is cleared once the batch completes.
func (a *App) UploadSelected(ctx context.Context) error {
	candidates := a.registry.SelectedAbsent()
	if len(candidates) == 0 {
		fmt.Println("Nothing to upload: no selected asset is confirmed missing remotely.")
		return nil
	}

	added := a.queue.AddAssets(candidates)
	fmt.Printf("Queued %d new item(s), uploading...\n", added)

	if err := a.driver.Run(ctx); err != nil {
		return err
	}

	a.registry.Dispatch(registry.SetSelected{Checksums: nil})
	a.anchor = ""

	stats := a.queue.Stats()
	fmt.Printf("Done: %d uploaded, %d failed, %d remaining.\n",
		stats.Uploaded, stats.Errors, stats.Remaining)
	return nil
}

// ShowQueue prints the current queue contents and aggregate stats.
func (a *App) ShowQueue() {
	items := a.queue.Items()
	if len(items) == 0 {
		fmt.Println("Upload queue is empty.")
		return
	}

	for i, item := range items {
		line := fmt.Sprintf("%3d %-9s %s", i+1, item.Status, item.Asset.Path)
		if item.Status == upload.StatusError && item.Reason != "" {
			line += " (" + item.Reason + ")"
		}
		fmt.Println(line)
	}

	stats := a.queue.Stats()
	fmt.Printf("total %d, uploaded %d, errors %d, remaining %d\n",
		stats.Total, stats.Uploaded, stats.Errors, stats.Remaining)
}

// ClearQueue drops every completed item from the queue.
func (a *App) ClearQueue() {
	dropped := a.queue.ClearCompleted()
	fmt.Printf("Removed %d completed item(s).\n", dropped)
}

// RemoveQueued drops a single queue item by its 1-based position.
func (a *App) RemoveQueued(arg string) error {
	items := a.queue.Items()
	idx := 0
	if _, err := fmt.Sscanf(arg, "%d", &idx); err != nil || idx < 1 || idx > len(items) {
		return fmt.Errorf("bad queue position %q (1..%d)", arg, len(items))
	}
	a.queue.Remove(items[idx-1].Asset.Checksum)
	fmt.Println("Removed.")
	return nil
}
