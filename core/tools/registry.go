// Package tools describes the capabilities the remote service may invoke.
//
// Every tool is one variant of a tagged union keyed by its name. A variant owns
// a typed argument struct that is validated at the parse boundary, so a
// malformed payload fails before anything is executed. Execution itself is
// delegated to an Executor.
package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"
)

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Arguments is implemented by every tool argument struct.
type Arguments interface {
	Validate() error
}

// Definition is one registered tool.
type Definition struct {
	Name        string
	Description string
	Parameters  json.RawMessage

	parse func(json.RawMessage) (Arguments, error)
}

// New defines a tool whose arguments decode into T. The advertised parameter
// schema is reflected from T.
func New[T Arguments](name, description string) Definition {
	reflector := jsonschema.Reflector{DoNotReference: true, AllowAdditionalProperties: false}
	var zero T
	schema := reflector.ReflectFromType(reflect.TypeOf(zero))
	schema.Version = ""
	schema.ID = ""
	parameters, err := json.Marshal(schema)
	if err != nil {
		logger.Error("failed to marshal tool schema", "tool", name, "error", err)
		parameters = json.RawMessage(`{"type":"object"}`)
	}

	return Definition{
		Name:        name,
		Description: description,
		Parameters:  parameters,
		parse: func(raw json.RawMessage) (Arguments, error) {
			var arguments T
			decoder := json.NewDecoder(bytes.NewReader(raw))
			decoder.DisallowUnknownFields()
			if err := decoder.Decode(&arguments); err != nil {
				return nil, err
			}
			if decoder.More() {
				return nil, errors.New("trailing data after arguments")
			}
			if err := arguments.Validate(); err != nil {
				return nil, err
			}
			return arguments, nil
		},
	}
}

// Spec is the advertised form of a Definition.
type Spec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Registry holds the tool set offered to the remote service.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]Definition
}

func NewRegistry(definitions ...Definition) *Registry {
	r := &Registry{definitions: make(map[string]Definition, len(definitions))}
	for _, definition := range definitions {
		r.Register(definition)
	}
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(definition Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[definition.Name] = definition
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.definitions[name]
	return ok
}

// Parse decodes and validates the arguments of a call to name.
func (r *Registry) Parse(name string, raw json.RawMessage) (Arguments, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	r.mu.RLock()
	definition, ok := r.definitions[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	arguments, err := definition.parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrInvalidArguments, name, err)
	}
	return arguments, nil
}

// Specs lists the registered tools sorted by name.
func (r *Registry) Specs() []Spec {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]Spec, 0, len(r.definitions))
	for _, definition := range r.definitions {
		specs = append(specs, Spec{
			Name:        definition.Name,
			Description: definition.Description,
			Parameters:  definition.Parameters,
		})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}
