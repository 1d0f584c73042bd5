package github

import (
	"context"
	"net/http"
	"time"

	"github.com/AnandVishesh1301/temboXpoke/internal/config"
	"github.com/AnandVishesh1301/temboXpoke/internal/modules"
)

const (
	githubAPIVersion = "2022-11-28"
	// callTimeout bounds each GitHub request.
	callTimeout = 15 * time.Second
)

// GitHubModule implements the Module interface for the GitHub pulls API
type GitHubModule struct {
	token string
	api   *modules.Upstream
}

// New creates a new GitHubModule instance. A nil client uses http.DefaultClient.
func New(cfg config.GitHubConfig, client *http.Client) *GitHubModule {
	return &GitHubModule{
		token: cfg.Token,
		api:   newUpstream(cfg, client),
	}
}

// Name returns the module name
func (m *GitHubModule) Name() string {
	return "github"
}

// Description returns the module description
func (m *GitHubModule) Description() string {
	return "GitHub API - pull request mergeability checks"
}

// APIVersion returns the GitHub API version
func (m *GitHubModule) APIVersion() string {
	return githubAPIVersion
}

// Tools returns all available tools
func (m *GitHubModule) Tools() []modules.Tool {
	return toolDefinitions
}

// ExecuteTool executes a tool by name
func (m *GitHubModule) ExecuteTool(ctx context.Context, name string, params map[string]any) (modules.Result, error) {
	switch name {
	case "check_pr_mergeable":
		return m.checkPRMergeable(ctx, params)
	default:
		return nil, modules.Fail(modules.KindInternal, "unknown tool: %s", name)
	}
}

var mergeableSchema = modules.InputSchema{
	Type: "object",
	Properties: map[string]modules.Property{
		"repo_owner": {
			Type:        "string",
			Description: "Repository owner (user or organization), e.g. \"octocat\".",
		},
		"repo_name": {
			Type:        "string",
			Description: "Repository name within that owner.",
		},
		"pr_number": {
			Type:        "integer",
			Description: "Pull request number; must be a positive integer.",
		},
	},
	Required: []string{"repo_owner", "repo_name", "pr_number"},
}

var toolDefinitions = []modules.Tool{
	{
		Name: "check_pr_mergeable",
		Description: "Check whether a GitHub pull request can be merged cleanly. " +
			"has_conflict is true, false, or null while GitHub is still computing mergeability.",
		InputSchema: mergeableSchema,
		Annotations: modules.AnnotateReadOnly,
		Timeout:     callTimeout,
	},
}
