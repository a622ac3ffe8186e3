package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestAccountListShowsConfiguredAccounts(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "acc-1\tSam & Alex\tmemory=on\tfacts=2")
}

func TestAccountFactAddThenShow(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home,
		"account", "fact", "add",
		"--account", "acc-1",
		"--kind", "trait",
		"--key", "conflict style",
		"--value", "needs a short break before talking",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "added fact #3")

	stdout, _, err = executeCLI(t, home, "account", "show", "--account", "acc-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Sam & Alex (acc-1)")
	assert.Contains(t, stdout, "memory: true")
	assert.Contains(t, stdout, "#3\ttrait\tconflict style: needs a short break before talking\t(observation)")
}

func TestAccountFactAddRejectsScorekeeping(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home,
		"account", "fact", "add",
		"--account", "acc-1",
		"--kind", "memory",
		"--key", "dishes",
		"--value", "he forgot them 4 times this week",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid profile fact")

	stdout, _, err := executeCLI(t, home, "account", "show", "--account", "acc-1")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "dishes")
}

func TestAccountMemoryToggle(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "account", "memory", "on", "--account", "7")
	require.NoError(t, err)
	assert.Contains(t, stdout, "account 7: memory on")

	stdout, _, err = executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "7\tAccount 7\tmemory=on")

	_, _, err = executeCLI(t, home, "account", "memory", "maybe", "--account", "7")
	require.Error(t, err)
}

func TestAccountLimitOverrideShowsInUsage(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "account", "limit", "--account", "acc-1", "--tokens", "500")
	require.NoError(t, err)
	assert.Contains(t, stdout, "account acc-1: limit 500")

	stdout, _, err = executeCLI(t, home, "usage", "--account", "acc-1", "--json")
	require.NoError(t, err)

	var statuses []usageStatusOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, int64(500), statuses[0].Limit)
	assert.Equal(t, int64(0), statuses[0].Consumed)

	stdout, _, err = executeCLI(t, home, "account", "limit", "--account", "acc-1", "--clear")
	require.NoError(t, err)
	assert.Contains(t, stdout, "limit 200000")

	_, _, err = executeCLI(t, home, "account", "limit", "--account", "acc-1", "--tokens", "-5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token limit")
}

func TestUsageRendersStatus(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "usage")
	require.NoError(t, err)
	assert.Contains(t, stdout, "accounts: 1")
	assert.Contains(t, stdout, "Sam & Alex (acc-1)")
	assert.Contains(t, stdout, "100% left")
}

func TestTurnRecordsUsage(t *testing.T) {
	var calls atomic.Int32
	server := fakeModelServer(t, &calls)
	t.Setenv("PAIRCHAT_MODEL_BASE_URL", server.URL)

	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, stderr, err := executeCLI(t, home, "turn", "--account", "acc-1", "--message", "we keep arguing about chores")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Try naming the feeling first.")
	assert.Contains(t, stderr, "150 tokens")
	assert.Equal(t, int32(1), calls.Load())

	stdout, _, err = executeCLI(t, home, "usage", "--account", "acc-1", "--json")
	require.NoError(t, err)
	var statuses []usageStatusOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, int64(150), statuses[0].Consumed)

	stdout, _, err = executeCLI(t, home, "account", "show", "--account", "acc-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "turns: 1")
}

func TestTurnJSONOutput(t *testing.T) {
	var calls atomic.Int32
	server := fakeModelServer(t, &calls)
	t.Setenv("PAIRCHAT_MODEL_BASE_URL", server.URL)

	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "turn", "--account", "acc-1", "--message", "can you give me a summary of our patterns?", "--json")
	require.NoError(t, err)

	var out turnOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "ok", string(out.Outcome))
	assert.Equal(t, uint64(1), out.TurnID)
	assert.Equal(t, int64(150), out.Tokens)
	assert.Equal(t, []string{"safety", "persona-tone", "partner-profile", "long-term-memory", "insight"}, out.Layers)
}

func TestTurnDeniedWhenQuotaDisabled(t *testing.T) {
	var calls atomic.Int32
	server := fakeModelServer(t, &calls)
	t.Setenv("PAIRCHAT_MODEL_BASE_URL", server.URL)
	t.Setenv("PAIRCHAT_QUOTA_DEFAULT_LIMIT", "0")

	home := t.TempDir()

	_, _, err := executeCLI(t, home, "turn", "--account", "9", "--message", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, errTurnDenied)
	assert.Contains(t, err.Error(), "quota-disabled")
	assert.Equal(t, int32(0), calls.Load())
}

func TestTurnUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded","type":"server_error"}}`, http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)
	t.Setenv("PAIRCHAT_MODEL_BASE_URL", server.URL)

	home := t.TempDir()

	_, _, err := executeCLI(t, home, "turn", "--account", "1", "--message", "hello", "--json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model call failed")

	stdout, _, err := executeCLI(t, home, "usage", "--account", "1", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"consumed": 0`)
}

func TestLayersListAndPreview(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "layers", "list")
	require.NoError(t, err)
	for _, id := range []string{"safety", "persona-tone", "partner-profile", "long-term-memory", "insight"} {
		assert.Contains(t, stdout, id)
	}
	assert.Less(t, strings.Index(stdout, "safety"), strings.Index(stdout, "insight"))

	stdout, stderr, err := executeCLI(t, home, "layers", "preview", "--account", "acc-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "You are Tandem")
	assert.Contains(t, stdout, "- love language: quality time")
	assert.Contains(t, stderr, "layers: safety, persona-tone, partner-profile, long-term-memory")
	assert.NotContains(t, stderr, "insight")
}

func TestLayersExportLoadsAsCatalog(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "layers", "export")
	require.NoError(t, err)
	assert.Contains(t, stdout, "version: 1")

	catalogPath := filepath.Join(home, "layers.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(strings.Replace(stdout, "Keep answers short", "Keep replies brief", 1)), 0o600))
	t.Setenv("PAIRCHAT_CATALOG_PATH", catalogPath)

	stdout, _, err = executeCLI(t, home, "layers", "preview", "--account", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Keep replies brief")
}

func TestUsageResetAndHistory(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home, "usage", "--account", "acc-1")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "usage", "reset", "--account", "acc-1", "--period", "manual-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "period manual-1 opened with limit 200000")

	stdout, _, err = executeCLI(t, home, "usage", "history", "--account", "acc-1", "--json")
	require.NoError(t, err)
	var records []usageStatusOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	require.Len(t, records, 2)

	_, _, err = executeCLI(t, home, "usage", "reset", "--account", "acc-1", "--period", "bad key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid period key")
}

func TestReconcileListEmptyAndResolveUnknown(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "reconcile", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "nothing to reconcile")

	_, _, err = executeCLI(t, home, "reconcile", "resolve", "missing-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reconciliation entry not found")
}

func TestInvalidConfigSurfacesOnCommands(t *testing.T) {
	t.Setenv("PAIRCHAT_QUOTA_PERIOD", "fortnight")
	home := t.TempDir()

	_, _, err := executeCLI(t, home)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota.period")

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeAccountsFixture(home string) error {
	configDir := filepath.Join(home, ".pairchat")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return err
	}

	accounts := `version = 1

[[accounts]]
id = "acc-1"
name = "Sam & Alex"
last_turn_id = 0

[accounts.settings]
memory_enabled = true

[[accounts.facts]]
seq = 1
kind = "preference"
key = "love language"
value = "quality time"
source = "quiz"

[[accounts.facts]]
seq = 2
kind = "memory"
key = "anniversary"
value = "June 3"
source = "observation"
`

	return os.WriteFile(filepath.Join(configDir, "accounts.toml"), []byte(accounts), 0o600)
}

func fakeModelServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Try naming the feeling first."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
		}`))
	}))
	t.Cleanup(server.Close)

	return server
}
