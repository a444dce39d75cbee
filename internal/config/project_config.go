package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectConfigPath 项目级配置文件位置
// ProjectConfigPath is where the project-level config lives under projectDir.
func ProjectConfigPath(projectDir string) string {
	return filepath.Join(strings.TrimSpace(projectDir), ".assistant", "config.json")
}

// InitProjectConfigScaffold 在 projectDir 下初始化项目级配置模板（./.assistant/config.json）。已存在时不覆盖。
// InitProjectConfigScaffold writes ./.assistant/config.json under projectDir with the defaults.
// An existing file is left untouched and the returned bool is false.
func InitProjectConfigScaffold(projectDir string) (string, bool, error) {
	path := ProjectConfigPath(projectDir)

	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return path, false, fmt.Errorf("project config path is a directory: %s", path)
		}
		return path, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return path, false, fmt.Errorf("stat project config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return path, false, fmt.Errorf("mkdir .assistant: %w", err)
	}

	cfg := Default()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return path, false, fmt.Errorf("marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return path, false, fmt.Errorf("write project config: %w", err)
	}
	return path, true, nil
}

// WriteProviderModel 将 provider.model 写入项目配置（./.assistant/config.json）；目录不存在则创建
// WriteProviderModel writes provider.model to the project config, keeping every other key.
func WriteProviderModel(projectDir, model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return errors.New("model is empty")
	}
	path := ProjectConfigPath(projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir .assistant: %w", err)
	}
	var out map[string]any
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(stripJSONComments(data), &out); err != nil {
			out = nil
		}
	}
	if out == nil {
		out = make(map[string]any)
	}
	providerMap, _ := out["provider"].(map[string]any)
	if providerMap == nil {
		providerMap = make(map[string]any)
	}
	providerMap["model"] = model
	out["provider"] = providerMap
	data, err = json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
