package harvest

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"navi/internal/domain"
	"navi/internal/links"
)

// Update merges the links of one new message into the persisted store of a
// channel. It fails with domain.ErrNotFound if the channel was never
// synchronized. When the message adds no new link nothing is rewritten;
// otherwise the record and the full document are saved again.
func (s *Service) Update(ctx context.Context, channelID string, msg domain.Message) (*links.Store, error) {
	log := s.log.WithFields(logrus.Fields{"channel_id": channelID, "ts": msg.Timestamp})

	unlock, err := s.deps.Locker.Lock(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", channelID, err)
	}
	defer unlock()

	store, err := s.load(ctx, channelID)
	if err != nil {
		if isNotFound(err) {
			log.Debug("Channel not synchronized yet")
		}
		return nil, err
	}

	found, err := s.deps.Extractor.Extract(msg)
	if err != nil {
		return store, err
	}
	added := store.Merge(found...)
	if added == 0 {
		log.Debug("No new links in message")
		return store, nil
	}

	log.WithField("added", added).Info("New links observed")
	if _, err := s.persist(ctx, channelID, store); err != nil {
		return nil, err
	}
	return store, nil
}
