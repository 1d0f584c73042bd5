package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/AnandVishesh1301/temboXpoke/internal/config"
	"github.com/AnandVishesh1301/temboXpoke/internal/modules"
)

func newUpstream(cfg config.GitHubConfig, client *http.Client) *modules.Upstream {
	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	header.Set("X-GitHub-Api-Version", githubAPIVersion)
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}
	return &modules.Upstream{
		Service: "GitHub",
		BaseURL: cfg.BaseURL,
		Header:  header,
		Client:  client,
	}
}

// getPull fetches a single pull request and returns its decoded body.
func (m *GitHubModule) getPull(ctx context.Context, owner, repo string, number int) (map[string]any, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", url.PathEscape(owner), url.PathEscape(repo), number)
	resp, err := m.api.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.Status == http.StatusNotFound:
		return nil, modules.Fail(modules.KindNotFound, "PR #%d not found in %s/%s.", number, owner, repo)
	case resp.Status == http.StatusUnauthorized || resp.Status == http.StatusForbidden:
		msg, ok := modules.BodyField(resp.Body, "message")
		if !ok {
			msg = fmt.Sprintf("GitHub authentication/authorization error (%d). "+
				"Ensure GITHUB_TOKEN has access to this repository and 'Pull requests: read' scope.", resp.Status)
		}
		return nil, modules.FailStatus(modules.KindAuthError, resp.Status, msg)
	case resp.Status != http.StatusOK:
		return nil, modules.FailStatus(modules.KindRemoteError, resp.Status,
			fmt.Sprintf("GitHub API error: %d %s", resp.Status, resp.ErrorText()))
	}

	data, err := modules.DecodeBody(resp.Body)
	if err != nil {
		return nil, modules.FailStatus(modules.KindDecodeError, resp.Status,
			"Failed to parse GitHub PR JSON: "+err.Error()).Wrap(err)
	}
	body, ok := data.(map[string]any)
	if !ok {
		return nil, modules.FailStatus(modules.KindDecodeError, resp.Status,
			fmt.Sprintf("Failed to parse GitHub PR JSON: expected an object, got %T", data))
	}
	return body, nil
}
