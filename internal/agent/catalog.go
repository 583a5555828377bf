package agent

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog/*.yaml
var catalogFiles embed.FS

// Tool describes one tool the agent may invoke while exploring a repository.
// SampleInput is the input shape the scripted source uses for dev runs.
type Tool struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	SampleInput map[string]interface{} `yaml:"sample_input"`
}

// Catalog is the set of tools available to the agent, loaded from the
// embedded YAML definition.
type Catalog struct {
	Tools []Tool `yaml:"tools"`
}

// LoadCatalog parses the embedded tool catalog.
func LoadCatalog() (*Catalog, error) {
	data, err := catalogFiles.ReadFile("catalog/tools.yaml")
	if err != nil {
		return nil, fmt.Errorf("read tool catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal tool catalog: %w", err)
	}
	if len(c.Tools) == 0 {
		return nil, fmt.Errorf("tool catalog is empty")
	}

	return &c, nil
}

// Lookup returns the tool with the given name.
func (c *Catalog) Lookup(name string) (*Tool, bool) {
	for i := range c.Tools {
		if c.Tools[i].Name == name {
			return &c.Tools[i], true
		}
	}
	return nil, false
}
