package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// PublishRequest is one branch + commits + pull request round trip.
type PublishRequest struct {
	Branch  string
	Base    string
	Message string
	Title   string
	Body    string
	// Files maps repository-relative paths to their new content.
	Files map[string]string
}

// PublishResult reports what reached the remote.
type PublishResult struct {
	Branch         string
	Committed      []string
	PullRequestURL string
}

// GitHubPublisher pushes file contents through the GitHub contents API and
// opens a pull request. It never touches the local checkout.
type GitHubPublisher struct {
	Owner  string
	Repo   string
	Logger *zap.Logger
	client *github.Client
}

// NewGitHubPublisher authenticates with token against fullName (owner/name).
func NewGitHubPublisher(ctx context.Context, token, fullName string) (*GitHubPublisher, error) {
	if token == "" {
		return nil, errors.New("GitHub token not set")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return NewGitHubPublisherWithClient(github.NewClient(oauth2.NewClient(ctx, ts)), fullName)
}

// NewGitHubPublisherWithClient wraps an already configured client.
func NewGitHubPublisherWithClient(client *github.Client, fullName string) (*GitHubPublisher, error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("repository must be owner/name, got %q", fullName)
	}
	return &GitHubPublisher{Owner: owner, Repo: name, client: client, Logger: zap.NewNop()}, nil
}

// Publish creates the branch when missing, commits every file and opens the
// pull request. Files are committed in path order.
func (p *GitHubPublisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if err := p.EnsureBranch(ctx, req.Branch, req.Base); err != nil {
		return nil, err
	}
	result := &PublishResult{Branch: req.Branch}
	paths := make([]string, 0, len(req.Files))
	for path := range req.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := p.CommitFile(ctx, req.Branch, path, req.Message, req.Files[path]); err != nil {
			return result, err
		}
		result.Committed = append(result.Committed, path)
	}
	url, err := p.OpenPullRequest(ctx, req.Title, req.Body, req.Branch, req.Base)
	if err != nil {
		return result, err
	}
	result.PullRequestURL = url
	return result, nil
}

// EnsureBranch creates refs/heads/branch at the tip of base unless it
// already exists.
func (p *GitHubPublisher) EnsureBranch(ctx context.Context, branch, base string) error {
	_, resp, err := p.client.Git.GetRef(ctx, p.Owner, p.Repo, "heads/"+branch)
	if err == nil {
		p.Logger.Info("branch already exists", zap.String("branch", branch))
		return nil
	}
	if !isStatus(resp, http.StatusNotFound) {
		return fmt.Errorf("look up branch %s: %w", branch, err)
	}
	baseRef, _, err := p.client.Git.GetRef(ctx, p.Owner, p.Repo, "heads/"+base)
	if err != nil {
		return fmt.Errorf("look up base branch %s: %w", base, err)
	}
	_, resp, err = p.client.Git.CreateRef(ctx, p.Owner, p.Repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: baseRef.GetObject().SHA},
	})
	if err != nil {
		if isStatus(resp, http.StatusUnprocessableEntity) {
			p.Logger.Info("branch already exists", zap.String("branch", branch))
			return nil
		}
		return fmt.Errorf("create branch %s: %w", branch, err)
	}
	p.Logger.Info("created branch", zap.String("branch", branch), zap.String("base", base))
	return nil
}

// CommitFile writes content to path on branch, updating the file when it
// already exists there.
func (p *GitHubPublisher) CommitFile(ctx context.Context, branch, path, message, content string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		Branch:  github.String(branch),
	}
	existing, _, resp, err := p.client.Repositories.GetContents(ctx, p.Owner, p.Repo, path,
		&github.RepositoryContentGetOptions{Ref: branch})
	switch {
	case err == nil && existing != nil:
		opts.SHA = existing.SHA
		_, _, err = p.client.Repositories.UpdateFile(ctx, p.Owner, p.Repo, path, opts)
	case err == nil || isStatus(resp, http.StatusNotFound):
		_, _, err = p.client.Repositories.CreateFile(ctx, p.Owner, p.Repo, path, opts)
	}
	if err != nil {
		return fmt.Errorf("commit %s: %w", path, err)
	}
	p.Logger.Info("committed file", zap.String("file", path), zap.String("branch", branch))
	return nil
}

// OpenPullRequest opens head -> base and returns the pull request URL.
func (p *GitHubPublisher) OpenPullRequest(ctx context.Context, title, body, head, base string) (string, error) {
	pr, _, err := p.client.PullRequests.Create(ctx, p.Owner, p.Repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
		Body:  github.String(body),
	})
	if err != nil {
		return "", fmt.Errorf("open pull request: %w", err)
	}
	p.Logger.Info("pull request created", zap.String("url", pr.GetHTMLURL()))
	return pr.GetHTMLURL(), nil
}

func isStatus(resp *github.Response, code int) bool {
	return resp != nil && resp.Response != nil && resp.StatusCode == code
}
