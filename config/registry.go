package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Transform kinds accepted in a picker definition.
const (
	// TransformText keeps each output line as its own item.
	TransformText = "text"
	// TransformJSON decodes each line as a JSON object; text_field selects
	// the item text (default "text").
	TransformJSON = "json"
	// TransformLua runs the definition's script over the collected lines.
	TransformLua = "lua"
)

// Registry maps picker names to source definitions. The command line runs
// `quickpick -picker NAME` against it.
type Registry struct {
	Pickers map[string]PickerDef `yaml:"pickers"`
}

// PickerDef declares where a named picker's items come from and how output
// lines map to items. Exactly one of Command, Template, or File is set.
type PickerDef struct {
	// Command is a one-shot command line whose stdout becomes the batch.
	Command string `yaml:"command"`

	// Template is a live command template re-run per query change; "{}"
	// is replaced with the query text.
	Template string `yaml:"template"`

	// File is a watched file reloaded on change.
	File string `yaml:"file"`

	// Dir is the working directory for spawned commands.
	Dir string `yaml:"dir"`

	// Env holds KEY=VALUE pairs appended to the environment of spawned
	// commands.
	Env []string `yaml:"env"`

	// Transform names the line mapping: "", "text", "json", or "lua".
	Transform string `yaml:"transform"`

	// TextField is the JSON field holding the item text for the json
	// transform. Empty means "text".
	TextField string `yaml:"text_field"`

	// Script is the Lua chunk for the lua transform.
	Script string `yaml:"script"`
}

// LoadRegistry reads a YAML registry. A missing file yields an empty
// registry; every definition is validated on load.
func LoadRegistry(path string) (*Registry, error) {
	reg := &Registry{Pickers: map[string]PickerDef{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, &Error{Path: path, Message: err.Error(), Err: err}
	}
	if err := yaml.Unmarshal(data, reg); err != nil {
		return nil, &Error{Path: path, Message: err.Error(), Err: err}
	}
	if reg.Pickers == nil {
		reg.Pickers = map[string]PickerDef{}
	}
	for name, def := range reg.Pickers {
		if err := def.validate(path, name); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Lookup returns the definition for name.
func (r *Registry) Lookup(name string) (PickerDef, bool) {
	def, ok := r.Pickers[name]
	return def, ok
}

// Names returns the defined picker names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Pickers))
	for name := range r.Pickers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d PickerDef) validate(path, name string) error {
	set := 0
	for _, v := range []string{d.Command, d.Template, d.File} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return &Error{Path: path, Field: name, Message: "exactly one of command, template, or file must be set"}
	}
	switch d.Transform {
	case "", TransformText, TransformJSON:
	case TransformLua:
		if d.Script == "" {
			return &Error{Path: path, Field: name, Message: "lua transform needs a script"}
		}
	default:
		return &Error{Path: path, Field: name, Message: fmt.Sprintf("unknown transform %q", d.Transform)}
	}
	return nil
}
