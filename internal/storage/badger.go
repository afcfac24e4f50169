package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"navi/internal/domain"
)

const (
	recordSuffix   = ":record"
	documentSuffix = ":document"
	channelPrefix  = "channel:"
)

// BadgerRepository implements the Repository interface using BadgerDB.
type BadgerRepository struct {
	db  *badger.DB
	log logrus.FieldLogger
}

// NewBadgerRepository creates and initializes a new BadgerDB repository.
// It opens the database at the specified path.
func NewBadgerRepository(dbPath string, logger logrus.FieldLogger) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to open BadgerDB")
		return nil, fmt.Errorf("failed to open badger db at %s: %w", dbPath, err)
	}
	logger.Info("BadgerDB opened successfully at path: ", dbPath)

	return &BadgerRepository{
		db:  db,
		log: logger.WithField("component", "repository"),
	}, nil
}

// Close closes the BadgerDB database connection.
func (r *BadgerRepository) Close() error {
	r.log.Info("Closing BadgerDB...")
	err := r.db.Close()
	if err != nil {
		r.log.WithError(err).Error("Error closing BadgerDB")
		return err
	}
	r.log.Info("BadgerDB closed.")
	return nil
}

// recordKey builds the key of a channel's structured record.
// Format: channel:{channelID}:record
func recordKey(channelID string) []byte {
	return []byte(channelPrefix + channelID + recordSuffix)
}

// documentKey builds the key of a channel's rendered document.
// Format: channel:{channelID}:document
func documentKey(channelID string) []byte {
	return []byte(channelPrefix + channelID + documentSuffix)
}

// LoadRecord retrieves the structured record of a channel.
func (r *BadgerRepository) LoadRecord(ctx context.Context, channelID string) ([]byte, error) {
	return r.get(channelID, recordKey(channelID))
}

// SaveRecord stores the structured record of a channel.
func (r *BadgerRepository) SaveRecord(ctx context.Context, channelID string, record []byte) error {
	return r.set(channelID, recordKey(channelID), record)
}

// LoadDocument retrieves the rendered document of a channel.
func (r *BadgerRepository) LoadDocument(ctx context.Context, channelID string) ([]byte, error) {
	return r.get(channelID, documentKey(channelID))
}

// SaveDocument stores the rendered document of a channel.
func (r *BadgerRepository) SaveDocument(ctx context.Context, channelID string, doc []byte) error {
	return r.set(channelID, documentKey(channelID), doc)
}

func (r *BadgerRepository) set(channelID string, key, value []byte) error {
	log := r.log.WithFields(logrus.Fields{
		"channel_id": channelID,
		"key":        string(key),
		"bytes":      len(value),
	})

	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, value))
	})
	if err != nil {
		log.WithError(err).Error("Failed to save to BadgerDB")
		return fmt.Errorf("failed to save %s: %w", key, err)
	}

	log.Debug("Saved successfully")
	return nil
}

func (r *BadgerRepository) get(channelID string, key []byte) ([]byte, error) {
	var value []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("channel %s: %w", channelID, domain.ErrNotFound)
	}
	if err != nil {
		r.log.WithError(err).WithField("key", string(key)).Error("Failed to read from BadgerDB")
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// Channels lists every channel with a stored record.
func (r *BadgerRepository) Channels(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(channelPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			if strings.HasSuffix(key, recordSuffix) {
				ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(key, channelPrefix), recordSuffix))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// --- BadgerDB Internal Logger ---

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Infof(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
