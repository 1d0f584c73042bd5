package github

import (
	"fmt"
)

// TriState is a boolean that may be unknown. It encodes as true, false or null.
type TriState int

const (
	Unknown TriState = iota
	True
	False
)

// MarshalJSON implements json.Marshaler.
func (s TriState) MarshalJSON() ([]byte, error) {
	switch s {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// pullRequest holds the fields of a GitHub pull request that matter for
// mergeability, taken from the raw decoded body.
type pullRequest struct {
	Number         int
	Mergeable      any // true, false or nil while GitHub is computing
	MergeableState any
	HTMLURL        any
	HeadRef        any
	BaseRef        any
}

func parsePullRequest(number int, body map[string]any) pullRequest {
	return pullRequest{
		Number:         number,
		Mergeable:      body["mergeable"],
		MergeableState: body["mergeable_state"],
		HTMLURL:        body["html_url"],
		HeadRef:        refOf(body["head"]),
		BaseRef:        refOf(body["base"]),
	}
}

func refOf(v any) any {
	branch, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return branch["ref"]
}

// HasConflict interprets mergeable and mergeable_state. A null mergeable means
// GitHub has not finished computing and wins over any state.
func (pr pullRequest) HasConflict() TriState {
	if pr.Mergeable == nil {
		return Unknown
	}
	if m, ok := pr.Mergeable.(bool); ok && !m {
		return True
	}
	if state, _ := pr.MergeableState.(string); state == "dirty" {
		return True
	}
	return False
}

// Message is the human-readable summary for the given conflict state.
func (pr pullRequest) Message(conflict TriState) string {
	switch conflict {
	case Unknown:
		return fmt.Sprintf("GitHub is still computing mergeability for PR #%d. Try again in a few seconds.", pr.Number)
	case True:
		return fmt.Sprintf("PR #%d has merge conflicts between `%s` and `%s`.", pr.Number, refString(pr.HeadRef), refString(pr.BaseRef))
	default:
		return fmt.Sprintf("PR #%d is clean and mergeable between `%s` and `%s`.", pr.Number, refString(pr.HeadRef), refString(pr.BaseRef))
	}
}

// refString renders a missing ref as "None" to keep messages readable.
func refString(v any) string {
	switch r := v.(type) {
	case nil:
		return "None"
	case string:
		return r
	default:
		return fmt.Sprint(r)
	}
}
