package gitpack

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"

	"github.com/guessthat/cardcache/internal/domain"
)

// Store is the slice of the persistent store an import needs. Packs merge
// through the same dedup rule as remote top-ups, so importing the same
// repository twice is idempotent.
type Store interface {
	InsertBatch(cards []domain.Card) error
}

// Import clones (or pulls) the card-pack repository at repoURL into a
// subdirectory of packsDir, parses every pack file it contains and merges
// the cards into the store. It returns how many cards were merged.
func Import(store Store, repoURL, packsDir string, log *slog.Logger) (int, error) {
	localPath, err := repoLocalPath(packsDir, repoURL)
	if err != nil {
		return 0, err
	}
	if err := syncRepo(repoURL, localPath, log); err != nil {
		return 0, err
	}

	cards, errs := LoadDir(localPath)
	for _, e := range errs {
		log.Warn("skipping unreadable pack file", "error", e)
	}
	if len(cards) == 0 {
		log.Info("pack repository contained no cards", "url", repoURL)
		return 0, nil
	}

	if err := store.InsertBatch(cards); err != nil {
		return 0, fmt.Errorf("failed to merge pack cards: %w", err)
	}
	log.Info("imported card packs", "url", repoURL, "cards", len(cards), "skipped_files", len(errs))
	return len(cards), nil
}

// syncRepo clones the repository if localPath does not exist yet, or
// pulls the latest changes if it does.
func syncRepo(repoURL, localPath string, log *slog.Logger) error {
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		log.Info("cloning pack repository", "url", repoURL, "path", localPath)
		if _, err := git.PlainClone(localPath, false, &git.CloneOptions{URL: repoURL}); err != nil {
			return fmt.Errorf("failed to clone pack repo %s: %w", repoURL, err)
		}
	case err == nil:
		log.Info("pulling pack repository", "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open pack repo at %s: %w", localPath, err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree at %s: %w", localPath, err)
		}
		if err := worktree.Pull(&git.PullOptions{RemoteName: "origin"}); err != nil && err != git.NoErrAlreadyUpToDate {
			return fmt.Errorf("failed to pull pack repo at %s: %w", localPath, err)
		}
	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}
	return nil
}

// repoLocalPath maps a repository URL to a stable checkout location under
// baseDir, handling both https and scp-style ssh URLs.
func repoLocalPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http") {
		cleaned := strings.TrimSuffix(parsed.Path, ".git")
		return filepath.Join(baseDir, parsed.Host, cleaned), nil
	}

	// git@host:user/repo.git
	if strings.Contains(repoURL, "@") {
		parts := strings.SplitN(repoURL, ":", 2)
		if len(parts) == 2 {
			hostParts := strings.SplitN(parts[0], "@", 2)
			if len(hostParts) == 2 {
				return filepath.Join(baseDir, hostParts[1], strings.TrimSuffix(parts[1], ".git")), nil
			}
		}
	}
	return "", fmt.Errorf("could not parse pack repo URL: %s", repoURL)
}
