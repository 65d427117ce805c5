package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobtrail/internal/config"
)

// ErrUnrecognizedURL marks a source URL that is absent or not a profile URL
// this client knows how to read.
var ErrUnrecognizedURL = errors.New("unrecognized profile url")

// ErrUpstream marks a failed or malformed upstream response. Handlers log
// the wrapped detail and return a generic message to the caller.
var ErrUpstream = errors.New("enrichment upstream failure")

// Result carries the advisory profile fields mapped from the upstream
// source. The caller decides which of them to persist; enrichment never
// writes to storage itself. Raw is the upstream snapshot, returned so the
// client can post it back with a contact update for audit.
type Result struct {
	Name      string          `json:"name,omitempty"`
	Bio       string          `json:"bio,omitempty"`
	Location  string          `json:"location,omitempty"`
	BlogURL   string          `json:"blog_url,omitempty"`
	GitHubURL string          `json:"github_url,omitempty"`
	Skills    []string        `json:"skills,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// Client fetches public GitHub profile data. An optional token raises the
// unauthenticated rate limit.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient builds an enrichment client from config.
func NewClient(cfg config.EnrichConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(cfg.GitHubBaseURL, "/"),
		token:      cfg.GitHubToken,
	}
}

type githubUser struct {
	Login    string `json:"login"`
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	Blog     string `json:"blog"`
	Location string `json:"location"`
	HTMLURL  string `json:"html_url"`
}

type githubRepo struct {
	Language string `json:"language"`
	Fork     bool   `json:"fork"`
}

// Enrich resolves a GitHub profile URL into advisory profile fields. Repo
// languages become suggested skills; a failed repo listing degrades to a
// result without skills rather than failing the whole call.
func (c *Client) Enrich(ctx context.Context, profileURL string) (*Result, error) {
	login, err := loginFromURL(profileURL)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(login)))
	if err != nil {
		return nil, err
	}

	var user githubUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("%w: decode user payload: %v", ErrUpstream, err)
	}
	if user.Login == "" {
		return nil, fmt.Errorf("%w: user payload missing login", ErrUpstream)
	}

	result := &Result{
		Name:      user.Name,
		Bio:       user.Bio,
		Location:  user.Location,
		BlogURL:   normalizeBlogURL(user.Blog),
		GitHubURL: user.HTMLURL,
		Raw:       body,
	}

	if repoBody, err := c.get(ctx, fmt.Sprintf("%s/users/%s/repos?per_page=30&sort=updated", c.baseURL, url.PathEscape(login))); err == nil {
		var repos []githubRepo
		if err := json.Unmarshal(repoBody, &repos); err == nil {
			result.Skills = languagesOf(repos)
		}
	}

	return result, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", ErrUpstream, resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	return body, nil
}

func loginFromURL(profileURL string) (string, error) {
	profileURL = strings.TrimSpace(profileURL)
	if profileURL == "" {
		return "", fmt.Errorf("%w: url is empty", ErrUnrecognizedURL)
	}

	parsed, err := url.Parse(profileURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnrecognizedURL, err)
	}

	host := strings.ToLower(strings.TrimPrefix(parsed.Host, "www."))
	if host != "github.com" {
		return "", fmt.Errorf("%w: unsupported host %q", ErrUnrecognizedURL, parsed.Host)
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "", fmt.Errorf("%w: no login in path", ErrUnrecognizedURL)
	}
	return segments[0], nil
}

func normalizeBlogURL(blog string) string {
	blog = strings.TrimSpace(blog)
	if blog == "" {
		return ""
	}
	if !strings.Contains(blog, "://") {
		blog = "https://" + blog
	}
	return blog
}

func languagesOf(repos []githubRepo) []string {
	seen := make(map[string]struct{}, len(repos))
	languages := make([]string, 0, len(repos))
	for _, repo := range repos {
		if repo.Fork || repo.Language == "" {
			continue
		}
		if _, ok := seen[repo.Language]; ok {
			continue
		}
		seen[repo.Language] = struct{}{}
		languages = append(languages, repo.Language)
	}
	return languages
}
