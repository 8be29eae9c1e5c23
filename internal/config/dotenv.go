package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var dotEnvEscapes = strings.NewReplacer(
	`\\`, `\`,
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\"`, `"`,
)

// LoadDotEnv exports the variables of .env style files, first file first.
// Missing files are skipped; variables that are already set win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		values, err := readDotEnvFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		exportDefaults(values)
	}
	return nil
}

func readDotEnvFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values, err := parseDotEnv(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, nil
}

// parseDotEnv reads KEY=VALUE lines. Blank lines, comments and lines
// without "=" are ignored; an "export " prefix is accepted.
func parseDotEnv(reader io.Reader) (map[string]string, error) {
	values := make(map[string]string)
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		values[key] = parseDotEnvValue(value)
	}
	return values, scanner.Err()
}

func parseDotEnvValue(raw string) string {
	value := strings.TrimSpace(raw)
	if len(value) >= 2 {
		switch first, last := value[0], value[len(value)-1]; {
		case first == '"' && last == '"':
			return dotEnvEscapes.Replace(value[1 : len(value)-1])
		case first == '\'' && last == '\'':
			return value[1 : len(value)-1]
		}
	}
	// Unquoted values may carry an inline comment: VALUE # comment
	if index := strings.Index(value, " #"); index >= 0 {
		value = strings.TrimSpace(value[:index])
	}
	return value
}

// exportDefaults sets every key that is not already present in the process
// environment.
func exportDefaults(values map[string]string) {
	for key, value := range values {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, value)
	}
}
