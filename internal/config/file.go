package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadYAMLFile exports the keys of a flat YAML document as environment
// variables. Keys are upper-cased; the process environment and values
// already loaded from .env files keep precedence. A missing file is not
// an error.
//
//	port: 9090
//	redis_addr: localhost:6379
//	cors_allowed_origins: [https://app.example.com]
func LoadYAMLFile(path string) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil
	}
	raw, err := os.ReadFile(trimmed)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	values := map[string]any{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse config file %s: %w", trimmed, err)
	}

	exported := make(map[string]string, len(values))
	for key, value := range values {
		envKey := strings.ToUpper(strings.TrimSpace(key))
		if envKey == "" {
			continue
		}
		text, ok := yamlScalar(value)
		if !ok {
			return fmt.Errorf("config key %s: unsupported value %T", key, value)
		}
		exported[envKey] = text
	}
	exportDefaults(exported)
	return nil
}

func yamlScalar(value any) (string, bool) {
	switch typed := value.(type) {
	case nil:
		return "", true
	case string:
		return typed, true
	case bool:
		return strconv.FormatBool(typed), true
	case int:
		return strconv.Itoa(typed), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			text, ok := yamlScalar(item)
			if !ok {
				return "", false
			}
			parts = append(parts, text)
		}
		return strings.Join(parts, ","), true
	default:
		return "", false
	}
}
