package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/picsync/internal/client/models"
	"github.com/dmitrijs2005/picsync/internal/client/registry"
	"github.com/dmitrijs2005/picsync/internal/client/scan"
)

// Scan walks dir, ingests every supported media file and registers the
// resulting assets. A reconciliation pass runs right after so freshly added
// assets get their existence resolved.
func (a *App) Scan(ctx context.Context, dir string) error {
	candidates, err := scan.Walk(ctx, dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(candidates) == 0 {
		fmt.Println("No supported media files found.")
		return nil
	}

	fmt.Printf("Found %d candidate(s), ingesting...\n", len(candidates))

	results := a.ingestor.IngestBatch(ctx, candidates)

	var assets []*models.DeviceAsset
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Printf("  skipped %s: %v\n", res.Candidate.Path, res.Err)
			continue
		}
		assets = append(assets, res.Asset)
	}

	a.registry.Dispatch(registry.AddAssets{Assets: assets})
	fmt.Printf("Registered %d asset(s), %d failed. Total: %d\n",
		len(assets), failed, a.registry.Len())

	visited := a.pool.Run(ctx)
	if visited > 0 {
		fmt.Printf("Checked %d asset(s) against the server.\n", visited)
	}
	return nil
}

// List prints every registered asset in display order.
func (a *App) List() {
	assets := a.registry.Assets()
	if len(assets) == 0 {
		fmt.Println("No assets registered. Run 'scan <dir>' first.")
		return
	}

	for i, asset := range assets {
		marker := " "
		if a.registry.IsSelected(asset.Checksum) {
			marker = "*"
		}

		extra := ""
		if asset.Kind == models.KindVideo {
			extra = fmt.Sprintf(" %s", asset.Duration.Round(time.Second))
		}

		fmt.Printf("%3d [%s] %-5s %s %dx%d%s %s %s\n",
			i+1, marker, asset.Kind,
			asset.CapturedAt.Format("2006-01-02 15:04"),
			asset.Width, asset.Height, extra,
			existenceLabel(asset), asset.Path)
	}

	fmt.Printf("%d asset(s), %d selected, order %s\n",
		len(assets), len(a.registry.Selected()), a.registry.Order())
}

func existenceLabel(asset models.DeviceAsset) string {
	switch asset.Existence {
	case models.ExistencePresent:
		if asset.RemoteDeletedAt != nil {
			return "trashed"
		}
		return "uploaded"
	case models.ExistenceAbsent:
		return "new"
	default:
		return "?"
	}
}

// Sort switches the display order of the asset list.
func (a *App) Sort(arg string) error {
	var order registry.SortOrder
	switch arg {
	case "asc":
		order = registry.SortAsc
	case "desc":
		order = registry.SortDesc
	default:
		return fmt.Errorf("unknown sort order %q, use asc or desc", arg)
	}
	a.registry.Dispatch(registry.SetSortOrder{Order: order})
	return nil
}
