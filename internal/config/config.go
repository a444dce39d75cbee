package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
)

type ProviderConfig struct {
	// Kind is mock or openai.
	Kind          string   `json:"kind" toml:"kind"`
	BaseURL       string   `json:"base_url" toml:"base_url"`
	Model         string   `json:"model" toml:"model"`
	Models        []string `json:"models" toml:"models"`
	APIKey        string   `json:"api_key" toml:"api_key"`
	TimeoutMS     int      `json:"timeout_ms" toml:"timeout_ms"`
	MaxRetries    int      `json:"max_retries" toml:"max_retries"`
	ContextTokens int      `json:"context_tokens" toml:"context_tokens"`
	Temperature   *float64 `json:"temperature,omitempty" toml:"temperature,omitempty"`
}

type ReplyConfig struct {
	MockDelayMS int `json:"mock_delay_ms" toml:"mock_delay_ms"`
	// TimeoutMS bounds one reply. Negative disables the bound.
	TimeoutMS int `json:"timeout_ms" toml:"timeout_ms"`
}

type StorageConfig struct {
	// Backend is sqlite, file or memory.
	Backend string `json:"backend" toml:"backend"`
	BaseDir string `json:"base_dir" toml:"base_dir"`
}

type LogConfig struct {
	Level string `json:"level" toml:"level"`
	JSON  bool   `json:"json" toml:"json"`
}

type CatalogConfig struct {
	// Dir overlays the embedded reference data with same-named YAML files.
	Dir string `json:"dir" toml:"dir"`
}

type Config struct {
	Provider ProviderConfig `json:"provider" toml:"provider"`
	Reply    ReplyConfig    `json:"reply" toml:"reply"`
	Storage  StorageConfig  `json:"storage" toml:"storage"`
	Log      LogConfig      `json:"log" toml:"log"`
	Catalog  CatalogConfig  `json:"catalog" toml:"catalog"`
}

type fileReplyConfig struct {
	MockDelayMS *int `json:"mock_delay_ms" toml:"mock_delay_ms"`
	TimeoutMS   *int `json:"timeout_ms" toml:"timeout_ms"`
}

type fileLogConfig struct {
	Level *string `json:"level" toml:"level"`
	JSON  *bool   `json:"json" toml:"json"`
}

type fileConfig struct {
	Provider *ProviderConfig  `json:"provider" toml:"provider"`
	Reply    *fileReplyConfig `json:"reply" toml:"reply"`
	Storage  *StorageConfig   `json:"storage" toml:"storage"`
	Log      *fileLogConfig   `json:"log" toml:"log"`
	Catalog  *CatalogConfig   `json:"catalog" toml:"catalog"`
}

func Default() Config {
	return Config{
		Provider: ProviderConfig{
			Kind:          ProviderMock,
			BaseURL:       "https://api.openai.com/v1",
			Model:         DefaultModel,
			Models:        []string{DefaultModel},
			TimeoutMS:     DefaultProviderTimeoutMS,
			MaxRetries:    DefaultProviderMaxRetries,
			ContextTokens: DefaultContextTokens,
		},
		Reply: ReplyConfig{
			MockDelayMS: DefaultMockDelayMS,
			TimeoutMS:   DefaultReplyTimeoutMS,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			BaseDir: "~/.assistant",
		},
		Log: LogConfig{Level: "info", JSON: true},
	}
}

// Load 按 默认值 → 全局文件 → 项目文件 → 环境变量 的顺序合并配置
// Load merges defaults, the global file, the project file and the environment, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	for _, globalPath := range globalConfigPaths() {
		if err := mergeFromFile(&cfg, globalPath); err != nil {
			return Config{}, err
		}
	}

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("ASSISTANT_CONFIG_PATH")); envPath != "" {
		resolvedPath = envPath
	}
	if resolvedPath == "" {
		resolvedPath = findProjectConfigPath()
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return applyEnv(cfg)
}

// LogDir is where assistant.log is written.
func (c Config) LogDir() string {
	return filepath.Join(c.Storage.BaseDir, "logs")
}

// HistoryFile keeps the REPL's line history.
func (c Config) HistoryFile() string {
	return filepath.Join(c.Storage.BaseDir, "history")
}

func globalConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	dir := filepath.Join(home, ".assistant")
	return []string{
		filepath.Join(dir, "config.json"),
		filepath.Join(dir, "config.jsonc"),
	}
}

func findProjectConfigPath() string {
	candidates := []string{
		"assistant.config.json",
		"assistant.config.jsonc",
		"assistant.config.toml",
		".assistant/config.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	var fileCfg fileConfig
	if strings.EqualFold(filepath.Ext(resolved), ".toml") {
		if _, err := toml.Decode(string(data), &fileCfg); err != nil {
			return fmt.Errorf("parse config %q: %w", resolved, err)
		}
	} else {
		cleaned := stripJSONComments(data)
		if err := json.Unmarshal(cleaned, &fileCfg); err != nil {
			return fmt.Errorf("parse config %q: %w", resolved, err)
		}
	}
	applyFileConfig(cfg, fileCfg)
	return nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.Provider != nil {
		cfg.Provider = mergeProvider(cfg.Provider, *fc.Provider)
	}
	if fc.Reply != nil {
		if fc.Reply.MockDelayMS != nil {
			cfg.Reply.MockDelayMS = *fc.Reply.MockDelayMS
		}
		if fc.Reply.TimeoutMS != nil {
			cfg.Reply.TimeoutMS = *fc.Reply.TimeoutMS
		}
	}
	if fc.Storage != nil {
		cfg.Storage = mergeStorage(cfg.Storage, *fc.Storage)
	}
	if fc.Log != nil {
		if fc.Log.Level != nil {
			cfg.Log.Level = *fc.Log.Level
		}
		if fc.Log.JSON != nil {
			cfg.Log.JSON = *fc.Log.JSON
		}
	}
	if fc.Catalog != nil && strings.TrimSpace(fc.Catalog.Dir) != "" {
		cfg.Catalog.Dir = fc.Catalog.Dir
	}
}

func mergeProvider(base ProviderConfig, override ProviderConfig) ProviderConfig {
	if strings.TrimSpace(override.Kind) != "" {
		base.Kind = override.Kind
	}
	if strings.TrimSpace(override.BaseURL) != "" {
		base.BaseURL = override.BaseURL
	}
	if strings.TrimSpace(override.Model) != "" {
		base.Model = override.Model
	}
	if strings.TrimSpace(override.APIKey) != "" {
		base.APIKey = override.APIKey
	}
	if len(override.Models) > 0 {
		base.Models = append([]string(nil), override.Models...)
	}
	if override.TimeoutMS > 0 {
		base.TimeoutMS = override.TimeoutMS
	}
	if override.MaxRetries > 0 {
		base.MaxRetries = override.MaxRetries
	}
	if override.ContextTokens > 0 {
		base.ContextTokens = override.ContextTokens
	}
	if override.Temperature != nil {
		t := *override.Temperature
		base.Temperature = &t
	}
	return base
}

func mergeStorage(base StorageConfig, override StorageConfig) StorageConfig {
	if strings.TrimSpace(override.Backend) != "" {
		base.Backend = override.Backend
	}
	if strings.TrimSpace(override.BaseDir) != "" {
		base.BaseDir = override.BaseDir
	}
	return base
}

func normalize(cfg *Config) error {
	cfg.Provider.Kind = strings.ToLower(strings.TrimSpace(cfg.Provider.Kind))
	switch cfg.Provider.Kind {
	case "":
		cfg.Provider.Kind = ProviderMock
	case ProviderMock, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = Default().Provider.BaseURL
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = Default().Provider.Model
	}
	if cfg.Provider.TimeoutMS <= 0 {
		cfg.Provider.TimeoutMS = Default().Provider.TimeoutMS
	}
	if cfg.Provider.MaxRetries < 0 {
		cfg.Provider.MaxRetries = 0
	}
	if cfg.Provider.ContextTokens < 0 {
		cfg.Provider.ContextTokens = 0
	}
	cfg.Provider.Models = normalizeModelList(cfg.Provider.Models)
	if !containsString(cfg.Provider.Models, cfg.Provider.Model) {
		cfg.Provider.Models = append([]string{cfg.Provider.Model}, cfg.Provider.Models...)
	}

	if cfg.Reply.MockDelayMS < 0 {
		cfg.Reply.MockDelayMS = 0
	}

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	switch cfg.Storage.Backend {
	case "":
		cfg.Storage.Backend = "sqlite"
	case "sqlite", "file", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if strings.TrimSpace(cfg.Storage.BaseDir) == "" {
		cfg.Storage.BaseDir = Default().Storage.BaseDir
	}
	storageDir, err := expandPath(cfg.Storage.BaseDir)
	if err != nil {
		return err
	}
	cfg.Storage.BaseDir = storageDir

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = Default().Log.Level
	}

	if dir := strings.TrimSpace(cfg.Catalog.Dir); dir != "" {
		resolved, err := expandPath(dir)
		if err != nil {
			return err
		}
		cfg.Catalog.Dir = resolved
	}
	return nil
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("ASSISTANT_PROVIDER")); v != "" {
		cfg.Provider.Kind = v
	}
	if v := strings.TrimSpace(os.Getenv("ASSISTANT_BASE_URL")); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ASSISTANT_MODEL")); v != "" {
		cfg.Provider.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("ASSISTANT_API_KEY")); v != "" {
		cfg.Provider.APIKey = v
	} else if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ASSISTANT_MOCK_DELAY_MS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid ASSISTANT_MOCK_DELAY_MS: %q", v)
		}
		cfg.Reply.MockDelayMS = n
	}
	if v := strings.TrimSpace(os.Getenv("ASSISTANT_STORAGE")); v != "" {
		cfg.Storage.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("ASSISTANT_BASE_DIR")); v != "" {
		cfg.Storage.BaseDir = v
	}
	if v := strings.TrimSpace(os.Getenv("ASSISTANT_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}

	return cfg, normalize(&cfg)
}

func normalizeModelList(models []string) []string {
	out := make([]string, 0, len(models))
	seen := map[string]struct{}{}
	for _, m := range models {
		trimmed := strings.TrimSpace(m)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func containsString(items []string, needle string) bool {
	for _, item := range items {
		if item == needle {
			return true
		}
	}
	return false
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}

// stripJSONComments 去除 // 与 /* */ 注释，字符串内的内容保持不变
// stripJSONComments removes // and /* */ comments while leaving string literals intact.
func stripJSONComments(data []byte) []byte {
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	escaped := false
	out := bytes.Buffer{}

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateString
				out.WriteByte(c)
				continue
			}
			if c == '/' && next == '/' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			out.WriteByte(c)
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	return out.Bytes()
}
