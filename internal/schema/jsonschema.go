package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// object is a JSON object that marshals its members in insertion order.
// Property order in the generated schema drives key order in model output.
type object []member

type member struct {
	key   string
	value any
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(m.value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// JSONSchema returns the strict JSON Schema document for the definition.
// Every property is required; optional fields accept null instead.
func (d *Definition) JSONSchema() json.RawMessage {
	if err := d.compile(); err != nil {
		return nil
	}
	return json.RawMessage(d.doc)
}

// ResponseFormatSchema wraps the JSON Schema as {"name","strict","schema"},
// the shape structured-output APIs expect.
func (d *Definition) ResponseFormatSchema() (json.RawMessage, error) {
	if err := d.compile(); err != nil {
		return nil, err
	}
	wrapper := object{{"name", d.Name}}
	if d.Description != "" {
		wrapper = append(wrapper, member{"description", d.Description})
	}
	wrapper = append(wrapper,
		member{"strict", true},
		member{"schema", json.RawMessage(d.doc)},
	)
	return json.Marshal(wrapper)
}

// Validate checks extracted data against the definition.
func (d *Definition) Validate(data json.RawMessage) error {
	if err := d.compile(); err != nil {
		return err
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("data is not valid JSON: %w", err)
	}
	if err := d.compiled.Validate(doc); err != nil {
		return fmt.Errorf("data does not match schema %s: %w", d.Name, err)
	}
	return nil
}

// compile renders and compiles the JSON Schema once.
func (d *Definition) compile() error {
	d.once.Do(func() {
		doc, err := json.Marshal(rootSchema(d))
		if err != nil {
			d.err = fmt.Errorf("failed to render JSON schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("schema.json", bytes.NewReader(doc)); err != nil {
			d.err = fmt.Errorf("failed to load JSON schema: %w", err)
			return
		}
		compiled, err := compiler.Compile("schema.json")
		if err != nil {
			d.err = fmt.Errorf("failed to compile JSON schema: %w", err)
			return
		}
		d.doc = doc
		d.compiled = compiled
	})
	return d.err
}

func rootSchema(d *Definition) object {
	o := object{{"type", "object"}}
	if d.Description != "" {
		o = append(o, member{"description", d.Description})
	}
	return append(o, objectMembers(d.Fields)...)
}

func objectMembers(fields []Field) object {
	props := make(object, 0, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		props = append(props, member{f.Name, fieldSchema(f)})
		required = append(required, f.Name)
	}
	return object{
		{"properties", props},
		{"required", required},
		{"additionalProperties", false},
	}
}

func fieldSchema(f Field) object {
	var o object
	switch f.Type {
	case TypeDate:
		o = object{{"type", typeValue("string", f.Optional)}, {"format", "date"}}
		if f.Description == "" {
			f.Description = "ISO 8601 date (YYYY-MM-DD)"
		}
	case TypeEnum:
		values := make([]any, 0, len(f.Values)+1)
		for _, v := range f.Values {
			values = append(values, v)
		}
		if f.Optional {
			values = append(values, nil)
		}
		o = object{{"type", typeValue("string", f.Optional)}, {"enum", values}}
	case TypeObject:
		o = append(object{{"type", typeValue("object", f.Optional)}}, objectMembers(f.Fields)...)
	case TypeArray:
		o = object{{"type", typeValue("array", f.Optional)}, {"items", fieldSchema(*f.Items)}}
	default:
		o = object{{"type", typeValue(string(f.Type), f.Optional)}}
	}
	if f.Description != "" {
		o = append(o, member{"description", f.Description})
	}
	return o
}

func typeValue(t string, nullable bool) any {
	if nullable {
		return []string{t, "null"}
	}
	return t
}
