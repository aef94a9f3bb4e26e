package tools

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5"
)

// RepoInfo describes the local git checkout around a target directory.
type RepoInfo struct {
	Root      string
	Branch    string
	RemoteURL string
	Owner     string
	Name      string
}

// FullName returns owner/name, or "" when the remote was not recognised.
func (r *RepoInfo) FullName() string {
	if r == nil || r.Owner == "" || r.Name == "" {
		return ""
	}
	return r.Owner + "/" + r.Name
}

// ErrNotRepository is returned when path is not inside a git checkout.
var ErrNotRepository = errors.New("not a git repository")

// DetectRepository opens the checkout containing path and reads its current
// branch and origin remote. A detached HEAD or missing remote leaves the
// corresponding fields empty.
func DetectRepository(path string) (*RepoInfo, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		return nil, err
	}
	info := &RepoInfo{}
	if wt, err := repo.Worktree(); err == nil {
		info.Root = wt.Filesystem.Root()
	}
	if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}
	if remote, err := repo.Remote("origin"); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			info.RemoteURL = urls[0]
			info.Owner, info.Name, _ = ParseRemoteURL(urls[0])
		}
	}
	return info, nil
}

// ParseRemoteURL extracts owner and repository name from the usual GitHub
// remote shapes: https, ssh:// and scp-like git@host:owner/name.
func ParseRemoteURL(raw string) (owner, name string, ok bool) {
	raw = strings.TrimSpace(raw)
	var path string
	switch {
	case strings.Contains(raw, "://"):
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", false
		}
		path = u.Path
	case strings.Contains(raw, ":"):
		path = raw[strings.Index(raw, ":")+1:]
	default:
		return "", "", false
	}
	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return "", "", false
	}
	owner, name = parts[len(parts)-2], parts[len(parts)-1]
	if owner == "" || name == "" {
		return "", "", false
	}
	return owner, name, true
}
