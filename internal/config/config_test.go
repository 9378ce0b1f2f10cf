package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at temp dirs and clears the
// variables Load reads, so a developer's .env or shell cannot leak in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	for _, k := range []string{
		"GITHUB_TOKEN", "LLM_BASE_URL", "LLM_API_KEY", "LLM_MODEL",
		"STAR_VAULT_GITHUB_TOKEN", "STAR_VAULT_OUTPUT_DIR", "STAR_VAULT_JSON_DIR",
		"STAR_VAULT_MARKDOWN_DIR", "STAR_VAULT_PANDOC",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	return home
}

func readFile(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestLoad_CreatesDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	want := filepath.Join(home, dirName, fileName)
	assert.Equal(t, want, cfg.Path)
	assert.FileExists(t, want)

	assert.Empty(t, cfg.GitHubToken)
	assert.Equal(t, filepath.Join(home, dirName, "stars"), cfg.OutputDir)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "json"), cfg.JSONDir)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "markdown"), cfg.MarkdownDir)
	assert.Equal(t, DefaultPandoc, cfg.Pandoc)
	assert.Equal(t, DefaultLLMModel, cfg.LLMModel)

	m := readFile(t, want)
	assert.Contains(t, m, KeyOutputDir)
	assert.Equal(t, "", m[KeyGitHubToken])
}

func TestLoad_FileAndEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"github_token":"file-token","output_dir":"/data/stars","markdown_dir":"/docs"}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.GitHubToken)
	assert.Equal(t, "/data/stars/json", cfg.JSONDir)
	assert.Equal(t, "/docs", cfg.MarkdownDir)

	t.Setenv("GITHUB_TOKEN", "env-token")
	t.Setenv("STAR_VAULT_OUTPUT_DIR", "/env/out")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.GitHubToken)
	assert.Equal(t, "/env/out", cfg.OutputDir)
	assert.Equal(t, "/env/out/json", cfg.JSONDir)
}

func TestLoad_MalformedFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "read config")
}

func TestOverride(t *testing.T) {
	cfg := &Config{OutputDir: "/a", JSONDir: "/a/json", MarkdownDir: "/a/markdown"}

	cfg.Override("tok", "/b", "", "/md")
	assert.Equal(t, "tok", cfg.GitHubToken)
	assert.Equal(t, "/b", cfg.OutputDir)
	assert.Equal(t, "/b/json", cfg.JSONDir)
	assert.Equal(t, "/md", cfg.MarkdownDir)

	cfg.Override("", "", "", "")
	assert.Equal(t, "tok", cfg.GitHubToken)
	assert.Equal(t, "/b/json", cfg.JSONDir)
}

func TestUpdate_DoesNotPersistEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	t.Setenv("GITHUB_TOKEN", "env-token")

	require.NoError(t, Update(path, map[string]string{KeyOutputDir: "/out"}))
	require.NoError(t, Update(path, map[string]string{KeyMarkdownDir: "/md"}))

	m := readFile(t, path)
	assert.Equal(t, "/out", m[KeyOutputDir])
	assert.Equal(t, "/md", m[KeyMarkdownDir])
	assert.Equal(t, "", m[KeyGitHubToken])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRedacted(t *testing.T) {
	cfg := Config{GitHubToken: "ghp_abcdefghijkl", LLMAPIKey: "short"}
	r := cfg.Redacted()

	assert.Equal(t, "ghp_****ijkl", r.GitHubToken)
	assert.Equal(t, "****", r.LLMAPIKey)
	assert.Equal(t, "ghp_abcdefghijkl", cfg.GitHubToken, "original untouched")
}

func TestExpandHome(t *testing.T) {
	home := isolate(t)

	assert.Equal(t, filepath.Join(home, "x"), expandHome("~/x"))
	assert.Equal(t, home, expandHome("~"))
	assert.Equal(t, "/abs", expandHome("/abs"))
	assert.Equal(t, "~user/x", expandHome("~user/x"))
}
