package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type Exercise struct {
	ID       int    `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category,omitempty" yaml:"category"`
}

//go:embed fallback.yaml
var fallbackYAML []byte

var fallback = mustParseFallback(fallbackYAML)

func parseFallback(data []byte) ([]Exercise, error) {
	var doc struct {
		Exercises []Exercise `yaml:"exercises"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse fallback catalog: %w", err)
	}
	if len(doc.Exercises) == 0 {
		return nil, fmt.Errorf("fallback catalog is empty")
	}
	return doc.Exercises, nil
}

func mustParseFallback(data []byte) []Exercise {
	exercises, err := parseFallback(data)
	if err != nil {
		panic(err)
	}
	return exercises
}

// Fallback returns the built-in catalog filtered by q.
func Fallback(q string) []Exercise {
	return Filter(fallback, q)
}

// Filter keeps the exercises whose name contains q, case-insensitively. An empty q keeps all.
func Filter(exercises []Exercise, q string) []Exercise {
	q = NormalizeQuery(q)
	filtered := make([]Exercise, 0, len(exercises))
	for _, e := range exercises {
		if q == "" || strings.Contains(strings.ToLower(e.Name), q) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
