package neoframe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when no config file is found.
var ErrConfigNotFound = errors.New("neoframe: no .neoframe.yaml found")

// Config represents a .neoframe.yaml file: where to load and what to project.
type Config struct {
	Neo4j *Neo4jConfig `yaml:"neo4j,omitempty"`

	// Constraints toggles the uniqueness constraint phase. Defaults to true.
	Constraints *bool `yaml:"constraints,omitempty"`

	// OnRedeclare is "replace" (default) or "error".
	OnRedeclare string `yaml:"on_redeclare,omitempty"`

	Mapping `yaml:",inline"`
}

// Mapping declares the node types and relationships to project.
type Mapping struct {
	Nodes         []NodeMapping         `yaml:"nodes"`
	Relationships []RelationshipMapping `yaml:"relationships,omitempty"`
}

// NodeMapping declares one node type.
type NodeMapping struct {
	Label      string   `yaml:"label"`
	Identity   string   `yaml:"identity"`
	Attributes []string `yaml:"attributes,omitempty"`
}

// RelationshipMapping declares one relationship.
type RelationshipMapping struct {
	Source     string   `yaml:"source"`
	Target     string   `yaml:"target"`
	Name       string   `yaml:"type"`
	Attributes []string `yaml:"attributes,omitempty"`
}

// Options translates the engine settings of the config into Options.
func (c *Config) Options() ([]Option, error) {
	var opts []Option
	if c.Constraints != nil {
		opts = append(opts, WithConstraints(*c.Constraints))
	}
	if c.OnRedeclare != "" {
		p, err := ParseRedeclarePolicy(c.OnRedeclare)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithRedeclarePolicy(p))
	}
	return opts, nil
}

// ParseRedeclarePolicy parses "replace" or "error".
func ParseRedeclarePolicy(s string) (RedeclarePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "replace":
		return RedeclareReplace, nil
	case "error":
		return RedeclareError, nil
	default:
		return 0, fmt.Errorf("%w: unknown redeclare policy %q", ErrInvalidDeclaration, s)
	}
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".neoframe.yaml", ".neoframe.yml", "neoframe.yaml", "neoframe.yml"}

// LoadConfig finds and loads the nearest config file walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	return ParseConfig(data)
}

// ParseConfig decodes a YAML config. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("neoframe: parse config: %w", err)
	}

	return &cfg, nil
}
