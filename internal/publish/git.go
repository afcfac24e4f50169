package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sirupsen/logrus"

	"navi/internal/domain"
)

// GitOptions configures a GitSink.
type GitOptions struct {
	// RepoPath is a local clone (initialized when missing).
	RepoPath string
	// Dir is the directory inside the repository holding documents.
	Dir string
	// BrowseURL is the web address of Dir's parent, e.g.
	// https://github.com/acme/links/blob/master.
	BrowseURL string
	// Push pushes to "origin" after every commit.
	Push   bool
	Author string
	Email  string
}

// GitSink commits documents into a git repository.
type GitSink struct {
	opts GitOptions
	repo *git.Repository
	mu   sync.Mutex
	log  logrus.FieldLogger
}

// NewGitSink opens (or initializes) the repository at opts.RepoPath.
func NewGitSink(opts GitOptions, logger logrus.FieldLogger) (*GitSink, error) {
	if opts.Dir == "" {
		opts.Dir = "files"
	}
	if opts.Author == "" {
		opts.Author = "navi"
	}
	if opts.Email == "" {
		opts.Email = "navi@localhost"
	}

	repo, err := git.PlainOpen(opts.RepoPath)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(opts.RepoPath, 0o755); err != nil {
			return nil, fmt.Errorf("create repo dir: %w", err)
		}
		repo, err = git.PlainInit(opts.RepoPath, false)
	}
	if err != nil {
		return nil, fmt.Errorf("open repo %s: %w", opts.RepoPath, err)
	}

	return &GitSink{
		opts: opts,
		repo: repo,
		log:  logger.WithField("component", "git_publisher"),
	}, nil
}

// Location returns the browse URL of the channel's document.
func (s *GitSink) Location(channel domain.Channel) string {
	prefix := s.Prefix()
	if prefix == "" {
		return ""
	}
	return prefix + documentName(channel)
}

// Prefix returns the browse URL of the document directory, slash-terminated.
func (s *GitSink) Prefix() string {
	if s.opts.BrowseURL == "" {
		return ""
	}
	return strings.TrimSuffix(s.opts.BrowseURL, "/") + "/" + path.Clean(s.opts.Dir) + "/"
}

// Publish writes doc into the work tree and commits it when it changed.
func (s *GitSink) Publish(ctx context.Context, channel domain.Channel, doc []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rel := path.Join(s.opts.Dir, documentName(channel))
	log := s.log.WithFields(logrus.Fields{"channel_id": channel.ID, "path": rel})

	abs := filepath.Join(s.opts.RepoPath, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create publish dir: %w", err)
	}
	if err := os.WriteFile(abs, doc, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}

	worktree, err := s.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Add(rel); err != nil {
		return "", fmt.Errorf("git add %s: %w", rel, err)
	}
	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("git status: %w", err)
	}
	if st, ok := status[rel]; !ok || st.Staging == git.Unmodified {
		log.Debug("Document unchanged, nothing to commit")
		return s.Location(channel), nil
	}

	hash, err := worktree.Commit(fmt.Sprintf("Update collected links for %s", documentName(channel)), &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.opts.Author,
			Email: s.opts.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("git commit %s: %w", rel, err)
	}
	log.WithField("commit", hash.String()).Info("Document committed")

	if s.opts.Push {
		err := s.repo.PushContext(ctx, &git.PushOptions{RemoteName: "origin"})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return "", fmt.Errorf("git push: %w", err)
		}
		log.Info("Document pushed")
	}
	return s.Location(channel), nil
}
