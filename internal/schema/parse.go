package schema

import (
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// Parse parses schema text into a Definition. Every error it returns
// matches ErrParse.
func Parse(text string) (*Definition, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Msg: "schema is empty"}
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, yamlError(err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, &ParseError{Msg: "schema is empty"}
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, &ParseError{Line: doc.Line, Msg: "schema must be a mapping with name and fields"}
	}

	if err := uniqueKeys(doc, ""); err != nil {
		return nil, err
	}

	def := &Definition{}
	var fieldsNode *yaml.Node
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, val := doc.Content[i], doc.Content[i+1]
		switch key.Value {
		case "name":
			s, err := scalar(val, "", "name")
			if err != nil {
				return nil, err
			}
			def.Name = s
		case "description":
			s, err := scalar(val, "", "description")
			if err != nil {
				return nil, err
			}
			def.Description = s
		case "fields":
			fieldsNode = val
		default:
			return nil, &ParseError{Line: key.Line, Msg: "unknown key " + strconv.Quote(key.Value)}
		}
	}

	if def.Name == "" {
		return nil, &ParseError{Line: doc.Line, Msg: "name is required"}
	}
	if !identPattern.MatchString(def.Name) {
		return nil, &ParseError{Line: doc.Line, Msg: "name " + strconv.Quote(def.Name) + " is not a valid identifier"}
	}
	if fieldsNode == nil {
		return nil, &ParseError{Line: doc.Line, Msg: "fields is required"}
	}

	fields, err := parseFields(fieldsNode, "", 1)
	if err != nil {
		return nil, err
	}
	def.Fields = fields

	if err := def.compile(); err != nil {
		return nil, &ParseError{Msg: err.Error()}
	}
	return def, nil
}

// MustParse is like Parse but panics on error. For built-in templates.
func MustParse(text string) *Definition {
	def, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return def
}

func parseFields(n *yaml.Node, parent string, depth int) ([]Field, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, &ParseError{Line: n.Line, Path: parent, Msg: "fields must be a list"}
	}
	if len(n.Content) == 0 {
		return nil, &ParseError{Line: n.Line, Path: parent, Msg: "fields must not be empty"}
	}

	fields := make([]Field, 0, len(n.Content))
	seen := make(map[string]int, len(n.Content))
	for _, item := range n.Content {
		f, err := parseField(item, parent, depth, true)
		if err != nil {
			return nil, err
		}
		if line, dup := seen[f.Name]; dup {
			return nil, &ParseError{
				Line: f.Line,
				Path: joinPath(parent, f.Name),
				Msg:  "duplicate field name (first defined at line " + strconv.Itoa(line) + ")",
			}
		}
		seen[f.Name] = f.Line
		fields = append(fields, f)
	}
	return fields, nil
}

// parseField parses one field mapping. Array items are unnamed.
func parseField(n *yaml.Node, parent string, depth int, named bool) (Field, error) {
	f := Field{Line: n.Line}
	path := parent
	if n.Kind != yaml.MappingNode {
		return f, &ParseError{Line: n.Line, Path: parent, Msg: "field must be a mapping"}
	}
	if depth > maxDepth {
		return f, &ParseError{Line: n.Line, Path: parent, Msg: "nesting deeper than " + strconv.Itoa(maxDepth) + " levels"}
	}

	// Name first so later errors can point at the field path.
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == "name" {
			s, err := scalar(n.Content[i+1], parent, "name")
			if err != nil {
				return f, err
			}
			f.Name = s
		}
	}
	if named {
		if f.Name == "" {
			return f, &ParseError{Line: n.Line, Path: parent, Msg: "field name is required"}
		}
		if !identPattern.MatchString(f.Name) {
			return f, &ParseError{Line: n.Line, Path: parent, Msg: "field name " + strconv.Quote(f.Name) + " is not a valid identifier"}
		}
		path = joinPath(parent, f.Name)
	} else {
		path = parent + "[]"
		if f.Name != "" {
			return f, &ParseError{Line: n.Line, Path: path, Msg: "array items must not have a name"}
		}
	}
	if err := uniqueKeys(n, path); err != nil {
		return f, err
	}

	var valuesNode, fieldsNode, itemsNode *yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		switch key.Value {
		case "name":
		case "type":
			s, err := scalar(val, path, "type")
			if err != nil {
				return f, err
			}
			f.Type = FieldType(strings.ToLower(s))
		case "description":
			s, err := scalar(val, path, "description")
			if err != nil {
				return f, err
			}
			f.Description = s
		case "optional":
			if !named {
				return f, &ParseError{Line: key.Line, Path: path, Msg: "array items cannot be optional"}
			}
			if err := val.Decode(&f.Optional); err != nil {
				return f, &ParseError{Line: val.Line, Path: path, Msg: "optional must be true or false"}
			}
		case "values":
			valuesNode = val
		case "fields":
			fieldsNode = val
		case "items":
			itemsNode = val
		default:
			return f, &ParseError{Line: key.Line, Path: path, Msg: "unknown key " + strconv.Quote(key.Value)}
		}
	}

	if f.Type == "" {
		return f, &ParseError{Line: n.Line, Path: path, Msg: "type is required"}
	}
	if !f.Type.valid() {
		return f, &ParseError{Line: n.Line, Path: path, Msg: "unknown type " + strconv.Quote(string(f.Type))}
	}

	if valuesNode != nil && f.Type != TypeEnum {
		return f, &ParseError{Line: valuesNode.Line, Path: path, Msg: "values is only allowed on enum fields"}
	}
	if fieldsNode != nil && f.Type != TypeObject {
		return f, &ParseError{Line: fieldsNode.Line, Path: path, Msg: "fields is only allowed on object fields"}
	}
	if itemsNode != nil && f.Type != TypeArray {
		return f, &ParseError{Line: itemsNode.Line, Path: path, Msg: "items is only allowed on array fields"}
	}

	switch f.Type {
	case TypeEnum:
		values, err := parseValues(valuesNode, n, path)
		if err != nil {
			return f, err
		}
		f.Values = values
	case TypeObject:
		if fieldsNode == nil {
			return f, &ParseError{Line: n.Line, Path: path, Msg: "object fields require a fields list"}
		}
		fields, err := parseFields(fieldsNode, path, depth+1)
		if err != nil {
			return f, err
		}
		f.Fields = fields
	case TypeArray:
		if itemsNode == nil {
			return f, &ParseError{Line: n.Line, Path: path, Msg: "array fields require items"}
		}
		items, err := parseField(itemsNode, path, depth+1, false)
		if err != nil {
			return f, err
		}
		f.Items = &items
	}

	return f, nil
}

func parseValues(n, field *yaml.Node, path string) ([]string, error) {
	if n == nil {
		return nil, &ParseError{Line: field.Line, Path: path, Msg: "enum fields require values"}
	}
	if n.Kind != yaml.SequenceNode || len(n.Content) == 0 {
		return nil, &ParseError{Line: n.Line, Path: path, Msg: "values must be a non-empty list"}
	}
	values := make([]string, 0, len(n.Content))
	seen := make(map[string]bool, len(n.Content))
	for _, v := range n.Content {
		if v.Kind != yaml.ScalarNode {
			return nil, &ParseError{Line: v.Line, Path: path, Msg: "enum values must be scalars"}
		}
		if seen[v.Value] {
			return nil, &ParseError{Line: v.Line, Path: path, Msg: "duplicate enum value " + strconv.Quote(v.Value)}
		}
		seen[v.Value] = true
		values = append(values, v.Value)
	}
	return values, nil
}

// uniqueKeys rejects a mapping that repeats a key. yaml.v3 keeps every
// pair in the node tree, so the last value would otherwise win silently.
func uniqueKeys(n *yaml.Node, path string) error {
	seen := make(map[string]int, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		if line, dup := seen[key.Value]; dup {
			return &ParseError{
				Line: key.Line,
				Path: path,
				Msg:  "duplicate key " + strconv.Quote(key.Value) + " (first defined at line " + strconv.Itoa(line) + ")",
			}
		}
		seen[key.Value] = key.Line
	}
	return nil
}

func scalar(n *yaml.Node, path, key string) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", &ParseError{Line: n.Line, Path: path, Msg: key + " must be a string"}
	}
	return strings.TrimSpace(n.Value), nil
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// yamlError converts a yaml.v3 syntax error into a ParseError.
func yamlError(err error) error {
	msg := strings.TrimPrefix(err.Error(), "yaml: ")
	line := 0
	if m := yamlLinePattern.FindStringSubmatch(msg); m != nil {
		line, _ = strconv.Atoi(m[1])
		msg = strings.TrimSpace(strings.TrimPrefix(msg, m[0]+":"))
	}
	return &ParseError{Line: line, Msg: "invalid YAML: " + msg}
}
