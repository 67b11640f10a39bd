package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Tracker resolves which LLVM commit a downstream repository currently pins,
// by listing the repository root through the GitHub contents API and reading
// the submodule entry's recorded SHA.
type Tracker struct {
	apiURL     string
	submodule  string
	httpClient *http.Client
}

func NewTracker(apiURL, submodule string) *Tracker {
	return &Tracker{
		apiURL:     apiURL,
		submodule:  submodule,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type contentsEntry struct {
	Name string `json:"name"`
	SHA  string `json:"sha"`
	Type string `json:"type"`
}

// PinnedCommit returns the commit SHA the tracked submodule points at.
func (t *Tracker) PinnedCommit(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("build tracker request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "llvmbuilder/1.0")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("query tracker repository: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("tracker API error: %s", resp.Status)
	}

	var entries []contentsEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return "", fmt.Errorf("decode tracker listing: %w", err)
	}
	for _, e := range entries {
		if e.Name == t.submodule {
			if e.SHA == "" {
				return "", fmt.Errorf("tracker entry %s carries no commit", t.submodule)
			}
			return e.SHA, nil
		}
	}
	return "", fmt.Errorf("submodule %s not found in tracker listing", t.submodule)
}
