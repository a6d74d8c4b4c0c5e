// Package schema models the shape of the CloudFront DistributionConfig API
// as a declarative field tree. The tree drives the structure converter: each
// node states a field's name, how its value is encoded, whether the API
// requires it, and (for object kinds) the fields of its children.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

// Kind describes how a field's value is encoded in the API request.
type Kind int

const (
	// Scalar is a bool, string or integer copied through verbatim.
	Scalar Kind = iota
	// ScalarList is a list of scalars, encoded as {Quantity, Items}.
	ScalarList
	// Object is a nested structure with its own field tree.
	Object
	// ObjectList is a list of structures sharing one field tree,
	// encoded as {Quantity, Items}.
	ObjectList
	// Generated is an opaque token the handler mints itself; any
	// user-provided value is ignored.
	Generated
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "Scalar"
	case ScalarList:
		return "ScalarList"
	case Object:
		return "Object"
	case ObjectList:
		return "ObjectList"
	case Generated:
		return "Generated"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is one field of the API structure. Fields is populated only for the
// Object and ObjectList kinds; for ObjectList the same field tree applies to
// every element of the list.
type Node struct {
	Name     string
	Kind     Kind
	Required bool
	Fields   []Node
}

// docNode is the on-disk form of a Node. The document keeps the API's own
// type vocabulary (Boolean/String/Integer, the *List variants, Random) and
// an ordered field array so declaration order survives decoding.
type docNode struct {
	Name     string    `json:"Name"`
	Type     string    `json:"Type"`
	Required bool      `json:"Required"`
	Fields   []docNode `json:"Fields,omitempty"`
}

//go:embed api_structure.json
var apiStructure []byte

// Document returns the raw embedded API structure document.
func Document() []byte {
	return apiStructure
}

// Load parses the embedded API structure document into a Node tree. The
// document is versioned with the binary, so a failure to parse it is a build
// defect, not a runtime condition; callers still get an error rather than a
// panic so the top-level handler can turn it into a failure signal.
func Load() ([]Node, error) {
	var doc []docNode
	if err := json.Unmarshal(apiStructure, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse API structure document: %w", err)
	}
	return convertDoc(doc, "")
}

func convertDoc(doc []docNode, path string) ([]Node, error) {
	nodes := make([]Node, 0, len(doc))
	for _, d := range doc {
		fieldPath := d.Name
		if path != "" {
			fieldPath = path + "." + d.Name
		}

		kind, hasFields, err := kindOf(d.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldPath, err)
		}
		if hasFields && len(d.Fields) == 0 {
			return nil, fmt.Errorf("field %s: type %s declares no fields", fieldPath, d.Type)
		}
		if !hasFields && len(d.Fields) > 0 {
			return nil, fmt.Errorf("field %s: type %s cannot have fields", fieldPath, d.Type)
		}

		node := Node{
			Name:     d.Name,
			Kind:     kind,
			Required: d.Required,
		}
		if hasFields {
			children, err := convertDoc(d.Fields, fieldPath)
			if err != nil {
				return nil, err
			}
			node.Fields = children
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func kindOf(t string) (kind Kind, hasFields bool, err error) {
	switch t {
	case "Boolean", "String", "Integer":
		return Scalar, false, nil
	case "BooleanList", "StringList", "IntegerList":
		return ScalarList, false, nil
	case "Object":
		return Object, true, nil
	case "ObjectList":
		return ObjectList, true, nil
	case "Random":
		return Generated, false, nil
	}
	return 0, false, fmt.Errorf("unknown type %q", t)
}
