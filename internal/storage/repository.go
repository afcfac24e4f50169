package storage

import (
	"context"
)

// Repository is the persistence gateway for channel link records.
// Each channel owns two blobs: the structured record (JSON) and the
// rendered display document. Implementations overwrite idempotently and
// return domain.ErrNotFound for channels that were never saved.
type Repository interface {
	// LoadRecord returns the structured record of a channel.
	LoadRecord(ctx context.Context, channelID string) ([]byte, error)

	// SaveRecord stores the structured record of a channel, replacing any previous one.
	SaveRecord(ctx context.Context, channelID string, record []byte) error

	// LoadDocument returns the rendered display document of a channel.
	LoadDocument(ctx context.Context, channelID string) ([]byte, error)

	// SaveDocument stores the rendered display document of a channel.
	SaveDocument(ctx context.Context, channelID string, doc []byte) error

	// Channels lists the IDs of channels that have a stored record.
	Channels(ctx context.Context) ([]string, error)

	// Close gracefully shuts down the repository connection.
	Close() error
}
