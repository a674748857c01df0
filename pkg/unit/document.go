package unit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Wildcard in a fromlist requests every name in the package export list.
const Wildcard = "*"

// Import is one top-level import statement of a unit.
type Import struct {
	// Name is the dotted name being imported.
	Name string `yaml:"name"`

	// From lists names requested with "from Name import ...". Empty for a
	// plain import.
	From []string `yaml:"from,omitempty"`

	// As binds a plain import under a different local name.
	As string `yaml:"as,omitempty"`
}

// UnmarshalYAML accepts both the short scalar form ("- util") and the
// mapping form ("- name: util").
func (i *Import) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		i.Name = node.Value
		return nil
	}
	type plain Import
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*i = Import(p)
	return nil
}

// String renders the statement for logs and CLI output.
func (i Import) String() string {
	if len(i.From) > 0 {
		return fmt.Sprintf("from %s import %s", i.Name, strings.Join(i.From, ", "))
	}
	if i.As != "" {
		return fmt.Sprintf("import %s as %s", i.Name, i.As)
	}
	return "import " + i.Name
}

// Document is the parsed source of a unit.
type Document struct {
	// Exports is the declared export list used for wildcard expansion.
	// Nil when the source declares none.
	Exports []string `yaml:"exports"`

	// Imports are the top-level import statements, executed in order.
	Imports []Import `yaml:"imports"`

	// Values are plain top-level values.
	Values map[string]any `yaml:"values"`
}

// SyntaxError reports a malformed unit source.
type SyntaxError struct {
	Line    int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *SyntaxError) Unwrap() error {
	return e.Cause
}

// Parse decodes a unit source document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		// An empty source is a valid unit with no statements.
		if errors.Is(err, io.EOF) {
			return &Document{}, nil
		}
		return nil, &SyntaxError{Line: yamlErrorLine(err), Message: err.Error(), Cause: err}
	}

	for n, imp := range doc.Imports {
		if err := validateImport(imp); err != nil {
			return nil, &SyntaxError{Message: fmt.Sprintf("imports[%d]: %v", n, err)}
		}
	}
	for _, name := range doc.Exports {
		if name == "" || strings.Contains(name, Separator) || name == Wildcard {
			return nil, &SyntaxError{Message: fmt.Sprintf("invalid export name %q", name)}
		}
	}
	return &doc, nil
}

func validateImport(imp Import) error {
	if err := ValidateName(imp.Name); err != nil {
		return err
	}
	for _, f := range imp.From {
		if f == Wildcard {
			continue
		}
		if f == "" || strings.Contains(f, Separator) {
			return fmt.Errorf("invalid from-name %q", f)
		}
	}
	if imp.As != "" && (len(imp.From) > 0 || strings.Contains(imp.As, Separator)) {
		return fmt.Errorf("invalid alias %q", imp.As)
	}
	return nil
}

// ValidateName checks that name is a well-formed dotted unit name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty unit name")
	}
	for _, seg := range strings.Split(name, Separator) {
		if seg == "" {
			return fmt.Errorf("unit name %q has an empty segment", name)
		}
		if strings.ContainsAny(seg, `/\ `) {
			return fmt.Errorf("unit name %q contains an invalid character", name)
		}
	}
	return nil
}

// yamlErrorLine extracts the first line number from a yaml.v3 error.
func yamlErrorLine(err error) int {
	msg := err.Error()
	idx := strings.Index(msg, "line ")
	if idx < 0 {
		return 0
	}
	line := 0
	for _, r := range msg[idx+len("line "):] {
		if r < '0' || r > '9' {
			break
		}
		line = line*10 + int(r-'0')
	}
	return line
}
