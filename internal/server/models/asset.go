package models

import "time"

// Asset is one stored media object. Checksum is the hex SHA-1 of the file
// contents and is unique per owner; StorageKey locates the object in the
// S3 backend. DeletedAt is set when the asset is moved to the trash without
// removing the underlying object.
type Asset struct {
	ID         string
	UserID     string
	Checksum   string
	Kind       string
	FileName   string
	StorageKey string
	Size       int64
	CapturedAt time.Time
	DurationMS int64
	Favorite   bool
	Archived   bool
	CreatedAt  time.Time
	DeletedAt  *time.Time
}
