package registry

import "github.com/dmitrijs2005/picsync/internal/client/models"

// SortOrder is the configured display order of the asset list.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Action is the closed set of registry mutations. Every mutation flows
// through Registry.Dispatch; readers never modify state directly.
//
// The sum type is sealed by the unexported isAction method so a new action
// kind cannot be added without updating the Dispatch switch.
type Action interface {
	isAction()
}

// AddAssets appends the given assets, silently dropping any whose checksum
// is already registered. Dropped duplicates have their preview handles
// released immediately.
type AddAssets struct {
	Assets []*models.DeviceAsset
}

// UpdateAsset replaces the payload of the entry with the matching checksum.
// Used to attach reconciliation results and upload outcomes.
type UpdateAsset struct {
	Asset *models.DeviceAsset
}

// SetSelected replaces the selection set wholesale.
type SetSelected struct {
	Checksums []string
}

// Unselect removes only the given checksums from the selection set.
type Unselect struct {
	Checksums []string
}

// SetSortOrder changes the configured sort order and re-sorts immediately.
type SetSortOrder struct {
	Order SortOrder
}

func (AddAssets) isAction()    {}
func (UpdateAsset) isAction()  {}
func (SetSelected) isAction()  {}
func (Unselect) isAction()     {}
func (SetSortOrder) isAction() {}
