package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"navi/internal/domain"
)

// ErrInvalidChannelID is returned by the filesystem backend for channel IDs
// that cannot be used verbatim as a file name.
var ErrInvalidChannelID = errors.New("invalid channel id")

// FileRepository stores records as {dir}/json/{channelID}.json and
// documents as {dir}/{channelID}.md. Channel IDs are file stems, so IDs with
// path separators or dot segments are rejected.
type FileRepository struct {
	dir string
	log logrus.FieldLogger
}

// NewFileRepository creates the directory layout under dir.
func NewFileRepository(dir string, logger logrus.FieldLogger) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Join(dir, "json"), 0o755); err != nil {
		return nil, fmt.Errorf("create files dir %s: %w", dir, err)
	}
	return &FileRepository{dir: dir, log: logger.WithField("component", "repository")}, nil
}

func (r *FileRepository) recordPath(channelID string) string {
	return filepath.Join(r.dir, "json", channelID+".json")
}

func (r *FileRepository) documentPath(channelID string) string {
	return filepath.Join(r.dir, channelID+".md")
}

// LoadRecord reads the structured record of a channel.
func (r *FileRepository) LoadRecord(ctx context.Context, channelID string) ([]byte, error) {
	if err := checkChannelID(channelID); err != nil {
		return nil, err
	}
	return r.read(channelID, r.recordPath(channelID))
}

// SaveRecord writes the structured record of a channel.
func (r *FileRepository) SaveRecord(ctx context.Context, channelID string, record []byte) error {
	if err := checkChannelID(channelID); err != nil {
		return err
	}
	return r.write(channelID, r.recordPath(channelID), record)
}

// LoadDocument reads the rendered document of a channel.
func (r *FileRepository) LoadDocument(ctx context.Context, channelID string) ([]byte, error) {
	if err := checkChannelID(channelID); err != nil {
		return nil, err
	}
	return r.read(channelID, r.documentPath(channelID))
}

// SaveDocument writes the rendered document of a channel.
func (r *FileRepository) SaveDocument(ctx context.Context, channelID string, doc []byte) error {
	if err := checkChannelID(channelID); err != nil {
		return err
	}
	return r.write(channelID, r.documentPath(channelID), doc)
}

// Channels lists every channel with a record file.
func (r *FileRepository) Channels(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.dir, "json"))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op for the filesystem backend.
func (r *FileRepository) Close() error {
	return nil
}

func (r *FileRepository) read(channelID, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("channel %s: %w", channelID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// write replaces path atomically so readers never see a partial file.
func (r *FileRepository) write(channelID, path string, data []byte) error {
	log := r.log.WithFields(logrus.Fields{"channel_id": channelID, "path": path})

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		log.WithError(err).Error("Failed to replace file")
		return fmt.Errorf("replace %s: %w", path, err)
	}
	log.Debug("File written")
	return nil
}

// checkChannelID rejects IDs that would not round-trip through a file name.
func checkChannelID(channelID string) error {
	if channelID == "" || channelID == "." || strings.ContainsAny(channelID, `/\`) || strings.Contains(channelID, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidChannelID, channelID)
	}
	return nil
}
