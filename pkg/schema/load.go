package schema

import (
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

type templateDocument struct {
	Sections []Section `yaml:"sections"`
}

// Parse decodes a YAML template document and validates it.
func Parse(data []byte) (Template, error) {
	var doc templateDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: parse template: %w", err)
	}
	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("schema: template declares no sections")
	}
	tpl := Template(doc.Sections)
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	return tpl, nil
}

// LoadFile reads and parses a template from the given filesystem. Use it to
// point the engine at a customised archive layout instead of the bundled one.
func LoadFile(fsys fs.FS, path string) (Template, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return Parse(data)
}
