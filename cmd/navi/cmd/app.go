package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"navi/internal/chat"
	"navi/internal/config"
	"navi/internal/harvest"
	"navi/internal/links"
	"navi/internal/lock"
	"navi/internal/publish"
	"navi/internal/render"
	"navi/internal/storage"
	"navi/internal/title"
	"navi/internal/users"
)

// app is the wired set of components shared by the subcommands.
type app struct {
	chat      *chat.Client
	botUserID string
	extractor *links.Extractor
	service   *harvest.Service
	closers   []func() error
}

// newApp builds every component selected by cfg. Close releases them.
func newApp(ctx context.Context, cfg config.Config, log *logrus.Logger) (*app, error) {
	a := &app{}
	if err := a.wire(ctx, cfg, log); err != nil {
		a.Close(log)
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	a.chat = chat.New(chat.Options{
		BotToken:      cfg.SlackBotToken,
		AppToken:      cfg.SlackAppToken,
		APIURL:        cfg.SlackAPIURL,
		PageSize:      cfg.HistoryPageSize,
		Timeout:       cfg.HistoryTimeout,
		LegacyHistory: cfg.LegacyHistory,
	}, log)

	var err error
	a.botUserID, err = a.chat.BotUserID(ctx)
	if err != nil {
		return fmt.Errorf("identify bot user: %w", err)
	}
	log.WithFields(logrus.Fields{"bot_name": cfg.BotName, "bot_user_id": a.botUserID}).Info("Authenticated with Slack")

	repo, err := newRepository(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	a.closers = append(a.closers, repo.Close)

	locker, err := newLocker(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize lock: %w", err)
	}
	if r, ok := locker.(*lock.Redis); ok {
		a.closers = append(a.closers, r.Close)
	}

	sink, err := newSink(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize publisher: %w", err)
	}

	titles, err := a.newTitleResolver(cfg, log)
	if err != nil {
		return err
	}

	classifier := links.NewClassifier(cfg.Sections)
	a.extractor = links.NewExtractor(links.ExtractorOptions{
		SelfFragments: harvest.SelfFragments(cfg.SelfFragments, sink),
		SelfUserID:    a.botUserID,
		AllTextLinks:  cfg.AllTextLinks,
	})
	directory := users.NewDirectory(a.chat, cfg.UserDirectoryTTL, log)

	a.service = harvest.NewService(harvest.Deps{
		History:    a.chat,
		Channels:   a.chat,
		Repo:       repo,
		Extractor:  a.extractor,
		Classifier: classifier,
		Renderer:   render.NewRenderer(titles, directory, cfg.Location(), cfg.TitleWorkers),
		Locker:     locker,
		Publisher:  sink,
	}, harvest.Options{
		MaxRateLimitRetries: cfg.MaxRateLimitRetries,
		Concurrency:         cfg.SyncConcurrency,
		MinMembers:          cfg.SyncMinMembers,
	}, log)
	return nil
}

// Close releases components in reverse creation order.
func (a *app) Close(log logrus.FieldLogger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.WithError(err).Error("Error closing component")
		}
	}
	a.closers = nil
}

func newRepository(ctx context.Context, cfg config.Config, log *logrus.Logger) (storage.Repository, error) {
	switch cfg.StorageBackend {
	case "file":
		return storage.NewFileRepository(cfg.FilesDir, log)
	case "minio":
		return storage.NewMinioRepository(ctx, storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, log)
	default:
		return storage.NewBadgerRepository(cfg.BadgerDBPath, log)
	}
}

func newLocker(ctx context.Context, cfg config.Config, log *logrus.Logger) (lock.Locker, error) {
	if cfg.LockBackend == "redis" {
		return lock.NewRedis(ctx, cfg.RedisURL, cfg.LockTTL, log)
	}
	return lock.NewLocal(), nil
}

func newSink(cfg config.Config, log *logrus.Logger) (publish.Sink, error) {
	if cfg.PublishBackend == "git" {
		return publish.NewGitSink(publish.GitOptions{
			RepoPath:  cfg.PublishRepoPath,
			Dir:       cfg.PublishDir,
			BrowseURL: cfg.PublishBrowseURL,
			Push:      cfg.PublishPush,
			Author:    cfg.PublishAuthor,
			Email:     cfg.PublishEmail,
		}, log)
	}
	return publish.Noop{}, nil
}

func (a *app) newTitleResolver(cfg config.Config, log *logrus.Logger) (title.Resolver, error) {
	var next title.Resolver
	switch cfg.TitleBackend {
	case "none":
		return title.URLResolver{}, nil
	case "browser":
		browser := title.NewBrowserResolver(cfg.TitleTimeout, cfg.TitleDenylist, log)
		a.closers = append(a.closers, browser.Close)
		next = browser
	default:
		next = title.NewHTTPResolver(&http.Client{}, cfg.TitleTimeout, cfg.TitleDenylist, log)
	}

	cache, err := title.NewCachingResolver(next, cfg.TitleCacheSize)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { cache.Close(); return nil })
	return cache, nil
}
