package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load builds the runtime configuration: .env is loaded into the process
// environment first, then the environment map is completed from the YAML file
// named by CONFIG_FILE (if any).
func Load() (map[string]string, error) {
	_ = godotenv.Load()

	cfg := New()

	path := GetString(cfg, "CONFIG_FILE", "")
	if path == "" {
		return cfg, nil
	}

	fileValues, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	return Merge(cfg, fileValues), nil
}

// LoadFile reads a flat YAML document of KEY: value pairs. ${VAR} references
// are expanded against the environment before parsing.
func LoadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		values[strings.ToUpper(key)] = stringify(value)
	}
	return values, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}
