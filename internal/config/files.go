package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Stage file base names inside the configuration directory.
const (
	InitFile      = "config"
	ScrapingFile  = "scraping_config"
	SelectionFile = "selection_config"
	RedactionFile = "redaction_config"
	DesignFile    = "design_config"
)

// JSON is valid YAML, so the same decoder reads both.
var stageExtensions = []string{".yaml", ".yml", ".json"}

// StagePath finds the file for a stage, trying each supported extension.
func StagePath(dir, base string) (string, error) {
	for _, ext := range stageExtensions {
		p := filepath.Join(dir, base+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: configuration file not found: %s/%s{.yaml,.yml,.json}", ErrInvalidConfig, dir, base)
}

// decodeFile reads path into v. An empty document is rejected so that
// missing keys are reported instead of silently defaulting.
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidConfig, path)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

// loadStage resolves and decodes a stage file.
func loadStage(dir, base string, v any) (string, error) {
	path, err := StagePath(dir, base)
	if err != nil {
		return "", err
	}
	return path, decodeFile(path, v)
}

func invalid(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, filepath.Base(path), fmt.Sprintf(format, args...))
}

// eachMappingPair walks a YAML mapping in document order.
func eachMappingPair(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	seen := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: mapping key must be a string", keyNode.Line)
		}
		if _, dup := seen[keyNode.Value]; dup {
			return fmt.Errorf("line %d: duplicate key %q", keyNode.Line, keyNode.Value)
		}
		seen[keyNode.Value] = struct{}{}
		if err := fn(keyNode.Value, valNode); err != nil {
			return err
		}
	}
	return nil
}

// scalar is a string-typed YAML scalar. yaml.v3 would otherwise turn 5 or
// true into "5" and "true"; configuration keys must be written as strings.
type scalar string

func (s *scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode || node.ShortTag() != "!!str" {
		return fmt.Errorf("line %d: expected a string, got %s", node.Line, describeNode(node))
	}
	*s = scalar(node.Value)
	return nil
}

func describeNode(node *yaml.Node) string {
	switch node.Kind {
	case yaml.MappingNode:
		return "a mapping"
	case yaml.SequenceNode:
		return "a list"
	default:
		return fmt.Sprintf("%s %q", node.ShortTag(), node.Value)
	}
}

func scalarStrings(list []scalar) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = string(s)
	}
	return out
}

// NamedValue is one entry of an ordered string mapping.
type NamedValue struct {
	Key   string
	Value string
}

// OrderedStrings is a string -> string mapping that keeps document order.
type OrderedStrings []NamedValue

func (o *OrderedStrings) UnmarshalYAML(node *yaml.Node) error {
	var out OrderedStrings
	err := eachMappingPair(node, func(key string, value *yaml.Node) error {
		var s scalar
		if err := value.Decode(&s); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, NamedValue{Key: key, Value: string(s)})
		return nil
	})
	if err != nil {
		return err
	}
	*o = out
	return nil
}

// Lookup returns the value stored under key.
func (o OrderedStrings) Lookup(key string) (string, bool) {
	for _, nv := range o {
		if nv.Key == key {
			return nv.Value, true
		}
	}
	return "", false
}

// Resolve joins a configured path with base unless it is absolute.
func Resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
