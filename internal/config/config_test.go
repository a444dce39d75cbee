package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func isolate(t *testing.T) (home, work string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{
		"ASSISTANT_CONFIG_PATH", "ASSISTANT_PROVIDER", "ASSISTANT_BASE_URL", "ASSISTANT_MODEL",
		"ASSISTANT_API_KEY", "OPENAI_API_KEY", "ASSISTANT_MOCK_DELAY_MS", "ASSISTANT_STORAGE",
		"ASSISTANT_BASE_DIR", "ASSISTANT_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	work = t.TempDir()
	oldwd, _ := os.Getwd()
	if err := os.Chdir(work); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldwd) })
	return home, work
}

func TestDefaults(t *testing.T) {
	home, _ := isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.Kind != ProviderMock {
		t.Fatalf("kind=%q", cfg.Provider.Kind)
	}
	if cfg.Storage.BaseDir != filepath.Join(home, ".assistant") {
		t.Fatalf("base_dir=%q", cfg.Storage.BaseDir)
	}
	if cfg.LogDir() != filepath.Join(home, ".assistant", "logs") {
		t.Fatalf("log dir=%q", cfg.LogDir())
	}
	if cfg.Reply.MockDelayMS != DefaultMockDelayMS || cfg.Reply.TimeoutMS != DefaultReplyTimeoutMS {
		t.Fatalf("reply=%+v", cfg.Reply)
	}
}

func TestLoadJSONCAndPrecedence(t *testing.T) {
	home, _ := isolate(t)

	globalDir := filepath.Join(home, ".assistant")
	if err := os.MkdirAll(globalDir, 0o755); err != nil {
		t.Fatal(err)
	}
	globalCfg := `{
  // global
  "provider": {"model": "global-model", "kind": "openai"},
  "reply": {"mock_delay_ms": 10},
  "log": {"json": false}
}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.jsonc"), []byte(globalCfg), 0o644); err != nil {
		t.Fatal(err)
	}
	projectCfg := `{
  /* project */
  "provider": {"model": "project-model"},
  "reply": {"mock_delay_ms": 0, "timeout_ms": -1},
  "storage": {"backend": "FILE"}
}`
	if err := os.WriteFile("assistant.config.jsonc", []byte(projectCfg), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.Model != "project-model" {
		t.Fatalf("model=%q", cfg.Provider.Model)
	}
	if cfg.Provider.Kind != ProviderOpenAI {
		t.Fatalf("kind=%q", cfg.Provider.Kind)
	}
	if cfg.Reply.MockDelayMS != 0 {
		t.Fatalf("mock_delay_ms=%d", cfg.Reply.MockDelayMS)
	}
	if cfg.Reply.TimeoutMS != -1 {
		t.Fatalf("timeout_ms=%d", cfg.Reply.TimeoutMS)
	}
	if cfg.Storage.Backend != "file" {
		t.Fatalf("backend=%q", cfg.Storage.Backend)
	}
	if cfg.Log.JSON {
		t.Fatalf("log.json expected false")
	}
}

func TestLoadTOMLProjectFile(t *testing.T) {
	isolate(t)
	projectCfg := `
[provider]
kind = "openai"
model = "toml-model"
temperature = 0.3

[storage]
backend = "memory"
base_dir = "data"
`
	if err := os.WriteFile("assistant.config.toml", []byte(projectCfg), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.Model != "toml-model" || cfg.Provider.Kind != ProviderOpenAI {
		t.Fatalf("provider=%+v", cfg.Provider)
	}
	if cfg.Provider.Temperature == nil || *cfg.Provider.Temperature != 0.3 {
		t.Fatalf("temperature=%v", cfg.Provider.Temperature)
	}
	if cfg.Storage.Backend != "memory" || !filepath.IsAbs(cfg.Storage.BaseDir) {
		t.Fatalf("storage=%+v", cfg.Storage)
	}
}

func TestEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("ASSISTANT_MODEL", "env-model")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	t.Setenv("ASSISTANT_STORAGE", "memory")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.Model != "env-model" {
		t.Fatalf("model=%q", cfg.Provider.Model)
	}
	if cfg.Provider.Models[0] != "env-model" {
		t.Fatalf("models=%#v", cfg.Provider.Models)
	}
	if cfg.Provider.APIKey != "sk-fallback" {
		t.Fatalf("api key=%q", cfg.Provider.APIKey)
	}
	if cfg.Storage.Backend != "memory" {
		t.Fatalf("backend=%q", cfg.Storage.Backend)
	}
}

func TestEnvRejectsInvalidValues(t *testing.T) {
	isolate(t)
	t.Setenv("ASSISTANT_MOCK_DELAY_MS", "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for bad ASSISTANT_MOCK_DELAY_MS")
	}

	t.Setenv("ASSISTANT_MOCK_DELAY_MS", "")
	t.Setenv("ASSISTANT_PROVIDER", "carrier-pigeon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestExplicitPathWins(t *testing.T) {
	_, work := isolate(t)
	if err := os.WriteFile("assistant.config.json", []byte(`{"provider":{"model":"project"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	explicit := filepath.Join(work, "other.json")
	if err := os.WriteFile(explicit, []byte(`{"provider":{"model":"explicit"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(explicit)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.Model != "explicit" {
		t.Fatalf("model=%q", cfg.Provider.Model)
	}
}

func TestProviderModelsNormalization(t *testing.T) {
	isolate(t)
	projectCfg := `{
  "provider": {
    "model": "m2",
    "models": ["m1", "m2", "m1", "  ", "m3"]
  }
}`
	if err := os.WriteFile("assistant.config.json", []byte(projectCfg), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Provider.Models) != 3 {
		t.Fatalf("unexpected models: %#v", cfg.Provider.Models)
	}
	if cfg.Provider.Models[0] != "m1" || cfg.Provider.Models[1] != "m2" || cfg.Provider.Models[2] != "m3" {
		t.Fatalf("unexpected models order: %#v", cfg.Provider.Models)
	}
}

func TestStripJSONCommentsKeepsStrings(t *testing.T) {
	in := []byte(`{"url": "http://x//y", /* c */ "a": "b\"//"} // tail`)
	var out map[string]string
	if err := json.Unmarshal(stripJSONComments(in), &out); err != nil {
		t.Fatal(err)
	}
	if out["url"] != "http://x//y" || out["a"] != `b"//` {
		t.Fatalf("got %#v", out)
	}
}

func TestProjectScaffoldAndWriteModel(t *testing.T) {
	_, work := isolate(t)

	path, created, err := InitProjectConfigScaffold(work)
	if err != nil {
		t.Fatal(err)
	}
	if !created || path != ProjectConfigPath(work) {
		t.Fatalf("path=%q created=%v", path, created)
	}
	if _, created, err = InitProjectConfigScaffold(work); err != nil || created {
		t.Fatalf("second scaffold created=%v err=%v", created, err)
	}

	if err := WriteProviderModel(work, "  "); err == nil {
		t.Fatal("expected error for empty model")
	}
	if err := WriteProviderModel(work, "picked-model"); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.Model != "picked-model" {
		t.Fatalf("model=%q", cfg.Provider.Model)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Fatalf("scaffold lost storage section: %+v", cfg.Storage)
	}
}
