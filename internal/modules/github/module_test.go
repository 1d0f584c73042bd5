package github

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnandVishesh1301/temboXpoke/internal/config"
	"github.com/AnandVishesh1301/temboXpoke/internal/modules"
)

type fakeGitHub struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*http.Request
}

func newFakeGitHub(t *testing.T, status int, body string) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Clone(context.Background()))
		f.mu.Unlock()

		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeGitHub) calls() []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Request(nil), f.requests...)
}

func newRegistry(t *testing.T, token, baseURL string) *modules.Registry {
	t.Helper()
	r := modules.NewRegistry()
	require.NoError(t, r.Register(New(config.GitHubConfig{Token: token, BaseURL: baseURL}, nil)))
	return r
}

func check(t *testing.T, r *modules.Registry, args string) modules.Result {
	t.Helper()
	params, err := modules.DecodeBody([]byte(args))
	require.NoError(t, err)
	return r.Run(context.Background(), "check_pr_mergeable", params.(map[string]any))
}

const validArgs = `{"repo_owner":"octo","repo_name":"hello","pr_number":12}`

func TestCheckMissingToken(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{"valid arguments", validArgs},
		{"zero pr number", `{"repo_owner":"","repo_name":"","pr_number":0}`},
		{"wrong type", `{"repo_owner":"o","repo_name":"r","pr_number":"12"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeGitHub(t, http.StatusOK, `{}`)
			r := newRegistry(t, "", fake.URL)

			res := check(t, r, tt.args)
			assert.False(t, res.OK())
			assert.Equal(t, string(modules.KindMissingCredential), res["kind"])
			assert.Contains(t, res.ErrorMessage(), "GITHUB_TOKEN")
			assert.Contains(t, res.ErrorMessage(), "Pull requests: read")
			assert.Empty(t, fake.calls())
		})
	}
}

func TestCheckValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		wantErr string
	}{
		{"zero", `{"repo_owner":"o","repo_name":"r","pr_number":0}`, "pr_number must be a positive integer."},
		{"negative", `{"repo_owner":"o","repo_name":"r","pr_number":-3}`, "pr_number must be a positive integer."},
		{"missing", `{"repo_owner":"o","repo_name":"r"}`, "pr_number must be a positive integer."},
		{"fractional", `{"repo_owner":"o","repo_name":"r","pr_number":2.5}`, `parameter "pr_number": expected integer, got 2.5`},
		{"string number", `{"repo_owner":"o","repo_name":"r","pr_number":"12"}`, `parameter "pr_number": expected integer, got string`},
		{"empty owner", `{"repo_owner":"","repo_name":"r","pr_number":1}`, "repo_owner is required and must be non-empty."},
		{"empty repo", `{"repo_owner":"o","repo_name":"","pr_number":1}`, "repo_name is required and must be non-empty."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeGitHub(t, http.StatusOK, `{}`)
			r := newRegistry(t, "tok", fake.URL)

			res := check(t, r, tt.args)
			assert.False(t, res.OK())
			assert.Equal(t, tt.wantErr, res.ErrorMessage())
			assert.Equal(t, string(modules.KindInvalidArgument), res["kind"])
			assert.Empty(t, fake.calls())
		})
	}
}

func TestCheckRequest(t *testing.T) {
	fake := newFakeGitHub(t, http.StatusOK, `{"mergeable":true}`)
	r := newRegistry(t, "tok", fake.URL+"/")

	check(t, r, `{"repo_owner":"my org","repo_name":"hello","pr_number":12}`)

	calls := fake.calls()
	require.Len(t, calls, 1)
	req := calls[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/repos/my%20org/hello/pulls/12", req.URL.EscapedPath())
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
	assert.Equal(t, "application/vnd.github+json", req.Header.Get("Accept"))
	assert.Equal(t, "2022-11-28", req.Header.Get("X-GitHub-Api-Version"))
}

func TestCheckNotFound(t *testing.T) {
	fake := newFakeGitHub(t, http.StatusNotFound, `{"message":"Not Found"}`)
	r := newRegistry(t, "tok", fake.URL)

	res := check(t, r, validArgs)
	assert.False(t, res.OK())
	assert.Equal(t, "PR #12 not found in octo/hello.", res.ErrorMessage())
	assert.Equal(t, string(modules.KindNotFound), res["kind"])
	assert.NotContains(t, res, "status")
}

func TestCheckAuthErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"message from body", http.StatusUnauthorized, `{"message":"Bad credentials"}`, "Bad credentials"},
		{"hint when body has no message", http.StatusForbidden, `{}`,
			"GitHub authentication/authorization error (403). Ensure GITHUB_TOKEN has access to this repository and 'Pull requests: read' scope."},
		{"hint when body is not JSON", http.StatusUnauthorized, `nope`,
			"GitHub authentication/authorization error (401). Ensure GITHUB_TOKEN has access to this repository and 'Pull requests: read' scope."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeGitHub(t, tt.status, tt.body)
			r := newRegistry(t, "tok", fake.URL)

			res := check(t, r, validArgs)
			assert.False(t, res.OK())
			assert.Equal(t, tt.wantErr, res.ErrorMessage())
			assert.Equal(t, tt.status, res["status"])
			assert.Equal(t, string(modules.KindAuthError), res["kind"])
		})
	}
}

func TestCheckRemoteError(t *testing.T) {
	fake := newFakeGitHub(t, http.StatusInternalServerError, `server exploded`)
	r := newRegistry(t, "tok", fake.URL)

	res := check(t, r, validArgs)
	assert.False(t, res.OK())
	assert.Equal(t, "GitHub API error: 500 server exploded", res.ErrorMessage())
	assert.Equal(t, http.StatusInternalServerError, res["status"])
	assert.Equal(t, string(modules.KindRemoteError), res["kind"])
}

func TestCheckDecodeErrors(t *testing.T) {
	for _, body := range []string{`{broken`, `[1,2]`} {
		t.Run(body, func(t *testing.T) {
			fake := newFakeGitHub(t, http.StatusOK, body)
			r := newRegistry(t, "tok", fake.URL)

			res := check(t, r, validArgs)
			assert.False(t, res.OK())
			assert.Equal(t, http.StatusOK, res["status"])
			assert.Equal(t, string(modules.KindDecodeError), res["kind"])
			assert.Contains(t, res.ErrorMessage(), "Failed to parse GitHub PR JSON")
		})
	}
}

func TestCheckNetworkError(t *testing.T) {
	fake := newFakeGitHub(t, http.StatusOK, `{}`)
	url := fake.URL
	fake.Close()

	r := newRegistry(t, "tok", url)
	res := check(t, r, validArgs)
	assert.False(t, res.OK())
	assert.Equal(t, string(modules.KindNetworkError), res["kind"])
	assert.Contains(t, res.ErrorMessage(), "Network error calling GitHub: ")
}

func TestCheckDirtyConflict(t *testing.T) {
	fake := newFakeGitHub(t, http.StatusOK, `{
		"mergeable": true,
		"mergeable_state": "dirty",
		"html_url": "https://github.com/octo/hello/pull/12",
		"head": {"ref": "feature"},
		"base": {"ref": "main"}
	}`)
	r := newRegistry(t, "tok", fake.URL)

	res := check(t, r, validArgs)
	require.True(t, res.OK(), "envelope: %v", res)
	assert.Equal(t, modules.Result{
		"ok":              true,
		"pr_number":       12,
		"has_conflict":    True,
		"mergeable":       true,
		"mergeable_state": "dirty",
		"pr_url":          "https://github.com/octo/hello/pull/12",
		"message":         "PR #12 has merge conflicts between `feature` and `main`.",
		"head_ref":        "feature",
		"base_ref":        "main",
	}, res)
}

func TestCheckUnknownMergeability(t *testing.T) {
	fake := newFakeGitHub(t, http.StatusOK, `{"mergeable":null,"mergeable_state":"unknown"}`)
	r := newRegistry(t, "tok", fake.URL)

	res := check(t, r, validArgs)
	require.True(t, res.OK())
	assert.Equal(t, Unknown, res["has_conflict"])
	assert.Nil(t, res["mergeable"])
	assert.Equal(t, "GitHub is still computing mergeability for PR #12. Try again in a few seconds.", res["message"])

	for _, key := range []string{"head_ref", "base_ref", "pr_url"} {
		assert.Contains(t, res, key)
		assert.Nil(t, res[key])
	}

	text, err := modules.ToJSON(res)
	require.NoError(t, err)
	assert.Contains(t, text, `"has_conflict":null`)
}

func TestCheckClean(t *testing.T) {
	fake := newFakeGitHub(t, http.StatusOK,
		`{"mergeable":true,"mergeable_state":"clean","head":{"ref":"fix"},"base":{"ref":"main"}}`)
	r := newRegistry(t, "tok", fake.URL)

	first := check(t, r, validArgs)
	require.True(t, first.OK())
	assert.Equal(t, False, first["has_conflict"])
	assert.Equal(t, "PR #12 is clean and mergeable between `fix` and `main`.", first["message"])

	second := check(t, r, validArgs)
	assert.Equal(t, first, second)
}
