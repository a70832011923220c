package schema

import (
	"os"

	"gopkg.in/yaml.v3"
)

// yamlSchema is the intermediate structure of a schema file.
// Tables are kept as nodes so the builder can report line numbers.
type yamlSchema struct {
	Tables []yaml.Node `yaml:"tables"`

	node *yaml.Node
}

// yamlTable is the intermediate structure of one table entry.
type yamlTable struct {
	Name            string      `yaml:"name"`
	RequiredColumns []string    `yaml:"required_columns"`
	Datatypes       yaml.Node   `yaml:"datatypes"` // mapping node, order preserved
	PrimaryKey      string      `yaml:"primary_key"`
	ForeignKeys     []yaml.Node `yaml:"foreign_keys"`
}

// yamlForeignKey is one foreign_keys entry: {column, references: "table.column"}.
type yamlForeignKey struct {
	Column     string `yaml:"column"`
	References string `yaml:"references"`
}

// yamlTypeSpec is the object form of a datatype: {type, max_length}.
type yamlTypeSpec struct {
	Type      string `yaml:"type"`
	MaxLength *int   `yaml:"max_length"`
}

func parseYAMLFile(path string) (*yamlSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseYAMLBytes(data)
}

func parseYAMLBytes(data []byte) (*yamlSchema, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}

	var s yamlSchema
	if node.Kind == 0 {
		// empty document
		s.node = &node
		return &s, nil
	}
	if err := node.Decode(&s); err != nil {
		return nil, err
	}

	s.node = &node
	return &s, nil
}

// nodeLocation extracts the source location of a YAML node.
func nodeLocation(node *yaml.Node, file string) Location {
	if node == nil {
		return Location{File: file}
	}
	return Location{File: file, Line: node.Line, Column: node.Column}
}
