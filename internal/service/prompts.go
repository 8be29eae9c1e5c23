package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/iago/content-orchestrator-back/internal/ai"
	"github.com/iago/content-orchestrator-back/prompts"
)

// promptRenderer loads prompt templates from dir, falling back to the
// templates embedded in the binary, and caches them after the first parse.
type promptRenderer struct {
	dir string

	mu        sync.RWMutex
	templates map[string]*template.Template
}

func newPromptRenderer(dir string) *promptRenderer {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "prompts"
	}
	return &promptRenderer{dir: dir, templates: make(map[string]*template.Template)}
}

func (r *promptRenderer) render(fileName string, data any) (string, error) {
	tmpl, err := r.load(fileName)
	if err != nil {
		return "", err
	}

	buffer := bytes.NewBuffer(nil)
	if err := tmpl.Execute(buffer, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", fileName, err)
	}
	return buffer.String(), nil
}

func (r *promptRenderer) load(fileName string) (*template.Template, error) {
	r.mu.RLock()
	if tmpl, ok := r.templates[fileName]; ok {
		r.mu.RUnlock()
		return tmpl, nil
	}
	r.mu.RUnlock()

	content, err := os.ReadFile(filepath.Join(r.dir, fileName))
	if err != nil {
		embedded, embedErr := fs.ReadFile(prompts.FS, fileName)
		if embedErr != nil {
			return nil, fmt.Errorf("read prompt template %s: %w", fileName, errors.Join(err, embedErr))
		}
		content = embedded
	}

	tmpl, err := template.New(fileName).
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", fileName, err)
	}

	r.mu.Lock()
	r.templates[fileName] = tmpl
	r.mu.Unlock()
	return tmpl, nil
}

// generateText tries the profile's models in order. Exhausted credits and
// cancellation stop the walk since the next model shares the account.
func generateText(
	ctx context.Context,
	client ai.TextGenerator,
	profile ai.ModelProfile,
	instructions string,
	prompt string,
) (string, string, error) {
	if client == nil || !client.Available() {
		return "", "", ai.ErrProviderUnavailable
	}

	var failures []error
	for _, model := range profileModels(profile) {
		result, err := client.Generate(ctx, ai.GenerateRequest{
			Model:           model,
			Instructions:    instructions,
			Input:           prompt,
			Temperature:     profile.Temperature,
			MaxOutputTokens: profile.MaxOutputTokens,
		})
		if err == nil {
			return result.Text, firstNonEmpty(result.ModelID, model), nil
		}
		if ai.IsCreditsExhausted(err) || ctx.Err() != nil {
			return "", "", err
		}
		failures = append(failures, fmt.Errorf("model %s: %w", model, err))
	}
	return "", "", errors.Join(failures...)
}

func profileModels(profile ai.ModelProfile) []string {
	models := []string{profile.PrimaryModel}
	fallback := strings.TrimSpace(profile.FallbackModel)
	if fallback != "" && fallback != profile.PrimaryModel {
		models = append(models, fallback)
	}
	return models
}

// extractJSON returns the JSON object in a model answer, tolerating code
// fences and prose around it.
func extractJSON(text string) ([]byte, error) {
	trimmed := stripCodeFence(text)
	if trimmed == "" {
		return nil, errors.New("empty model output")
	}
	if json.Valid([]byte(trimmed)) {
		return []byte(trimmed), nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start && json.Valid([]byte(trimmed[start:end+1])) {
		return []byte(trimmed[start : end+1]), nil
	}
	return nil, errors.New("model output is not valid JSON")
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	for _, language := range []string{"json", "markdown"} {
		trimmed = strings.TrimPrefix(trimmed, language)
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
