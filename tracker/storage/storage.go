package storage

import "io"

// Storage holds request image attachments. Paths are relative to the storage
// root, e.g. "requests/<request_id>/photo.jpg".
type Storage interface {
	Read(path string) (io.ReadCloser, error)

	Write(path string, data io.Reader) error

	Delete(path string) error

	Exists(path string) (bool, error)

	Size(path string) (int64, error)

	Usage() (UsageStats, error)

	Location() string
}

type UsageStats struct {
	TotalBytes uint64
	FreeBytes  uint64
}

func (u UsageStats) UsedBytes() uint64 {
	return u.TotalBytes - u.FreeBytes
}
