// Package convert reshapes the flat property bag users author in their
// templates into the strict nested structure the CloudFront API expects.
// Conversion is driven entirely by the schema tree: the output contains a
// field if and only if the schema describes it.
package convert

import (
	"errors"
	"fmt"
	"time"

	"github.com/rererecursive/hl-component-cloudfront/internal/schema"
)

// ErrMissingRequired reports a field the API requires, the user omitted, and
// no generator can default. Conversion fails as a whole so an incomplete
// request is never sent downstream.
var ErrMissingRequired = errors.New("missing required field")

// newToken mints the opaque value for Generated fields. CloudFront only
// needs CallerReference to be unique per create, so a timestamp is enough.
var newToken = func() string {
	return fmt.Sprintf("cfr-%d", time.Now().UnixNano())
}

// aliases maps legacy property names onto the names the API currently uses.
// Applied to the DistributionConfig subtree before conversion, on every
// operation. This is a fixed table, not a general transform.
var aliases = map[string]string{
	"IPV6Enabled": "IsIPV6Enabled",
}

// ApplyAliases returns a copy of props with the legacy DistributionConfig
// field names rewritten. The input is never mutated.
func ApplyAliases(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}

	config, ok := out["DistributionConfig"].(map[string]any)
	if !ok {
		return out
	}

	renamed := make(map[string]any, len(config))
	for k, v := range config {
		if canonical, ok := aliases[k]; ok {
			k = canonical
		}
		renamed[k] = v
	}
	out["DistributionConfig"] = renamed
	return out
}

// Convert walks the schema nodes in declared order and produces the nested
// request structure from the provided property tree. List-kinded fields are
// wrapped in the API's {Quantity, Items} encoding with Quantity always
// derived from the items, never trusted from input. Optional fields the user
// omitted are left out entirely.
func Convert(nodes []schema.Node, provided map[string]any) (map[string]any, error) {
	return convert(nodes, provided, "")
}

func convert(nodes []schema.Node, provided map[string]any, path string) (map[string]any, error) {
	out := make(map[string]any, len(nodes))

	for _, node := range nodes {
		fieldPath := node.Name
		if path != "" {
			fieldPath = path + "." + node.Name
		}

		value, ok := provided[node.Name]

		// Generated fields are synthesized rather than copied; a
		// user-supplied value is ignored. An absent optional one is
		// omitted like any other field.
		if node.Kind == schema.Generated {
			if ok || node.Required {
				out[node.Name] = newToken()
			}
			continue
		}

		if !ok {
			if node.Required {
				return nil, fmt.Errorf("%w: %s", ErrMissingRequired, fieldPath)
			}
			continue
		}

		converted, err := convertField(node, value, fieldPath)
		if err != nil {
			return nil, err
		}
		out[node.Name] = converted
	}

	return out, nil
}

func convertField(node schema.Node, value any, path string) (any, error) {
	switch node.Kind {
	case schema.Scalar:
		return value, nil

	case schema.ScalarList:
		items, err := asList(value, path)
		if err != nil {
			return nil, err
		}
		return counted(items), nil

	case schema.Object:
		sub, err := asMapping(value, path)
		if err != nil {
			return nil, err
		}
		return convert(node.Fields, sub, path)

	case schema.ObjectList:
		items, err := asList(value, path)
		if err != nil {
			return nil, err
		}
		converted := make([]any, 0, len(items))
		for i, item := range items {
			sub, err := asMapping(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			// Every element is converted against the same field tree.
			c, err := convert(node.Fields, sub, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			converted = append(converted, c)
		}
		return counted(converted), nil
	}

	return nil, fmt.Errorf("field %s: unhandled kind %s", path, node.Kind)
}

// counted wraps a list in the API's required encoding.
func counted(items []any) map[string]any {
	return map[string]any{
		"Quantity": len(items),
		"Items":    items,
	}
}

func asList(v any, path string) ([]any, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field %s: expected a list, got %T", path, v)
	}
	return list, nil
}

func asMapping(v any, path string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("field %s: expected a mapping, got %T", path, v)
	}
	return m, nil
}
