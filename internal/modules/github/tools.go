package github

import (
	"context"

	"github.com/AnandVishesh1301/temboXpoke/internal/modules"
)

const missingTokenMessage = "GITHUB_TOKEN environment variable not set. " +
	"Create a fine-grained PAT with at least 'Pull requests: read' access for the relevant repositories."

// GET /repos/{owner}/{repo}/pulls/{pull_number}
func (m *GitHubModule) checkPRMergeable(ctx context.Context, params map[string]any) (modules.Result, error) {
	if m.token == "" {
		return nil, modules.Fail(modules.KindMissingCredential, missingTokenMessage)
	}
	if err := modules.CheckTypes(mergeableSchema, params); err != nil {
		return nil, err
	}

	args := modules.Args(params)
	number, ok := args.Int("pr_number")
	if !ok || number <= 0 {
		return nil, modules.Fail(modules.KindInvalidArgument, "pr_number must be a positive integer.")
	}
	owner := args.String("repo_owner")
	if owner == "" {
		return nil, modules.Fail(modules.KindInvalidArgument, "repo_owner is required and must be non-empty.")
	}
	repo := args.String("repo_name")
	if repo == "" {
		return nil, modules.Fail(modules.KindInvalidArgument, "repo_name is required and must be non-empty.")
	}

	body, err := m.getPull(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}

	pr := parsePullRequest(number, body)
	conflict := pr.HasConflict()

	result := modules.Success()
	result["pr_number"] = number
	result["has_conflict"] = conflict
	result["mergeable"] = pr.Mergeable
	result["mergeable_state"] = pr.MergeableState
	result["pr_url"] = pr.HTMLURL
	result["message"] = pr.Message(conflict)
	result["head_ref"] = pr.HeadRef
	result["base_ref"] = pr.BaseRef
	return result, nil
}
