package registry

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danrygg/wovenflow/internal/model"
	"github.com/danrygg/wovenflow/internal/wferrors"
)

// Parser is the narrow contract the Workflow Registry calls through to turn
// document bytes into a *model.Workflow; the concrete YAML/JSON parser is an
// external collaborator per spec.md §1, but this repository ships a real
// default implementation the way a single-binary CLI must.
type Parser interface {
	Parse(source string, data []byte) (*model.Workflow, error)
}

// YAMLParser decodes YAML (and, since YAML 1.2 is a JSON superset, plain
// JSON too) with strict unknown-field rejection, matching the teacher's
// internal/workflow/parser/parser.go.
type YAMLParser struct{}

func NewYAMLParser() *YAMLParser { return &YAMLParser{} }

func (p *YAMLParser) Parse(source string, data []byte) (*model.Workflow, error) {
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	var wf model.Workflow
	if err := dec.Decode(&wf); err != nil {
		return nil, wferrors.NewParseError(source, err)
	}
	if wf.Document.Name == "" {
		return nil, wferrors.NewParseError(source, fmt.Errorf("document.name is required"))
	}
	return &wf, nil
}
