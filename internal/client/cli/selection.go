package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/picsync/internal/client/models"
	"github.com/dmitrijs2005/picsync/internal/client/registry"
)

// Select modifies the selection set. Accepted forms:
//
//	select all        select every new asset
//	select none       clear the selection
//	select 3          toggle asset 3, making it the range anchor
//	select 3-7        replace the selection with assets 3 through 7
//	select +7         extend from the anchor through asset 7
func (a *App) Select(arg string) error {
	assets := a.registry.Assets()
	if len(assets) == 0 {
		return fmt.Errorf("no assets registered")
	}

	switch {
	case arg == "all":
		var checksums []string
		for _, asset := range assets {
			if asset.Existence != models.ExistencePresent {
				checksums = append(checksums, asset.Checksum)
			}
		}
		a.registry.Dispatch(registry.SetSelected{Checksums: checksums})
		a.anchor = ""

	case arg == "none":
		a.registry.Dispatch(registry.SetSelected{Checksums: nil})
		a.anchor = ""

	case strings.HasPrefix(arg, "+"):
		target, err := a.checksumAt(assets, strings.TrimPrefix(arg, "+"))
		if err != nil {
			return err
		}
		if a.anchor == "" {
			return fmt.Errorf("no anchor set, select a single asset first")
		}
		rng := a.registry.RangeBetween(a.anchor, target)
		if rng == nil {
			return fmt.Errorf("anchor asset no longer present")
		}
		a.registry.Dispatch(registry.SetSelected{Checksums: rng})

	case strings.Contains(arg, "-"):
		from, to, ok := strings.Cut(arg, "-")
		if !ok {
			return fmt.Errorf("bad range %q", arg)
		}
		fromCS, err := a.checksumAt(assets, from)
		if err != nil {
			return err
		}
		toCS, err := a.checksumAt(assets, to)
		if err != nil {
			return err
		}
		rng := a.registry.RangeBetween(fromCS, toCS)
		a.registry.Dispatch(registry.SetSelected{Checksums: rng})
		a.anchor = fromCS

	default:
		cs, err := a.checksumAt(assets, arg)
		if err != nil {
			return err
		}
		if a.registry.IsSelected(cs) {
			a.registry.Dispatch(registry.Unselect{Checksums: []string{cs}})
		} else {
			selected := append(a.registry.Selected(), cs)
			a.registry.Dispatch(registry.SetSelected{Checksums: selected})
			a.anchor = cs
		}
	}

	fmt.Printf("%d asset(s) selected.\n", len(a.registry.Selected()))
	return nil
}

// UnselectCmd removes assets from the selection: "unselect all" or
// "unselect <n>".
func (a *App) UnselectCmd(arg string) error {
	if arg == "all" {
		a.registry.Dispatch(registry.SetSelected{Checksums: nil})
		a.anchor = ""
		fmt.Println("Selection cleared.")
		return nil
	}

	cs, err := a.checksumAt(a.registry.Assets(), arg)
	if err != nil {
		return err
	}
	a.registry.Dispatch(registry.Unselect{Checksums: []string{cs}})
	fmt.Printf("%d asset(s) selected.\n", len(a.registry.Selected()))
	return nil
}

// checksumAt resolves a 1-based display index to its checksum.
func (a *App) checksumAt(assets []models.DeviceAsset, arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(assets) {
		return "", fmt.Errorf("bad asset number %q (1..%d)", arg, len(assets))
	}
	return assets[n-1].Checksum, nil
}
