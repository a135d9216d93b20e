package gitsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// Sync shallow-clones a dataset repository if it doesn't exist at the given
// path, or pulls the latest changes if it does. It reports whether the
// checkout changed.
func Sync(ctx context.Context, repoURL, localPath string) (bool, error) {
	_, err := os.Stat(localPath)
	if os.IsNotExist(err) {
		slog.Info("cloning dataset repository", "url", repoURL, "path", localPath)
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:          repoURL,
			Depth:        1,
			SingleBranch: true,
		})
		if err != nil {
			return false, fmt.Errorf("failed to clone repo %s: %w", repoURL, err)
		}
		slog.Info("clone successful", "path", localPath)
		return true, nil
	} else if err != nil {
		return false, fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	slog.Info("pulling dataset repository", "path", localPath)
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return false, fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
	}

	err = worktree.PullContext(ctx, &git.PullOptions{
		RemoteName:   "origin",
		Depth:        1,
		SingleBranch: true,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		slog.Info("dataset repository already up to date", "path", localPath)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
	}
	return true, nil
}

// LocalPath maps a repository URL (https or scp-like ssh) to a checkout
// directory under baseDir.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
