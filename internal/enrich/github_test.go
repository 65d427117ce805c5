package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobtrail/internal/config"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.EnrichConfig{GitHubBaseURL: baseURL})
}

func TestEnrich_MapsProfileAndSkills(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/jamie":
			w.Write([]byte(`{
				"login": "jamie",
				"name": "Jamie Rivera",
				"bio": "Backend engineer",
				"blog": "jamie.dev",
				"location": "Lisbon",
				"html_url": "https://github.com/jamie"
			}`))
		case "/users/jamie/repos":
			w.Write([]byte(`[
				{"language": "Go", "fork": false},
				{"language": "Go", "fork": false},
				{"language": "Rust", "fork": false},
				{"language": "Python", "fork": true},
				{"language": "", "fork": false}
			]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.Enrich(context.Background(), "https://github.com/jamie")
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}

	if result.Name != "Jamie Rivera" || result.Location != "Lisbon" {
		t.Fatalf("profile fields wrong: %+v", result)
	}
	if result.BlogURL != "https://jamie.dev" {
		t.Fatalf("blog url not normalized: %q", result.BlogURL)
	}
	if result.GitHubURL != "https://github.com/jamie" {
		t.Fatalf("github url wrong: %q", result.GitHubURL)
	}
	// Deduplicated, forks and empty languages skipped, order preserved.
	if len(result.Skills) != 2 || result.Skills[0] != "Go" || result.Skills[1] != "Rust" {
		t.Fatalf("skills wrong: %v", result.Skills)
	}

	// The raw snapshot survives serialization so clients can post it back.
	out, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var echoed struct {
		Raw json.RawMessage `json:"raw"`
	}
	if err := json.Unmarshal(out, &echoed); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	var snapshot struct {
		Login string `json:"login"`
	}
	if err := json.Unmarshal(echoed.Raw, &snapshot); err != nil || snapshot.Login != "jamie" {
		t.Fatalf("raw snapshot not echoed: %v %q", err, echoed.Raw)
	}
}

func TestEnrich_RepoFailureDegradesToNoSkills(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/jamie":
			w.Write([]byte(`{"login": "jamie", "name": "Jamie"}`))
		default:
			http.Error(w, "rate limited", http.StatusForbidden)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.Enrich(context.Background(), "https://github.com/jamie")
	if err != nil {
		t.Fatalf("enrich should survive repo failure: %v", err)
	}
	if len(result.Skills) != 0 {
		t.Fatalf("expected no skills, got %v", result.Skills)
	}
}

func TestEnrich_UnrecognizedURLs(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0")

	cases := []string{
		"",
		"https://gitlab.com/jamie",
		"https://github.com/",
		"not a url at all ://",
	}
	for _, raw := range cases {
		if _, err := client.Enrich(context.Background(), raw); !errors.Is(err, ErrUnrecognizedURL) {
			t.Fatalf("url %q: expected ErrUnrecognizedURL, got %v", raw, err)
		}
	}
}

func TestEnrich_UpstreamErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/missing":
			http.NotFound(w, r)
		case "/users/broken":
			w.Write([]byte(`{"name": 42`))
		case "/users/anonymous":
			w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for _, login := range []string{"missing", "broken", "anonymous"} {
		_, err := client.Enrich(context.Background(), "https://github.com/"+login)
		if !errors.Is(err, ErrUpstream) {
			t.Fatalf("login %q: expected ErrUpstream, got %v", login, err)
		}
	}
}

func TestLoginFromURL_AcceptsVariants(t *testing.T) {
	cases := map[string]string{
		"https://github.com/jamie":           "jamie",
		"https://www.github.com/jamie/":      "jamie",
		"https://GitHub.com/jamie?tab=repos": "jamie",
		"https://github.com/jamie/dotfiles":  "jamie",
	}
	for raw, want := range cases {
		got, err := loginFromURL(raw)
		if err != nil {
			t.Fatalf("url %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("url %q: got %q want %q", raw, got, want)
		}
	}
}
