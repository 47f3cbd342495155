// Package bundle translates workflow details into asset bundle documents and
// serializes them as YAML.
package bundle

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/dabops/internal/workflow"
)

// Document is an insertion-ordered mapping. Values must be one of: string,
// bool, int, int64, float64, []string, workflow.StringMap, *Document,
// []*Document or []any holding those same types.
type Document struct {
	keys   []string
	values map[string]any
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{values: make(map[string]any)}
}

// Set stores value under key. Replacing an existing key keeps its position.
func (d *Document) Set(key string, value any) *Document {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
	return d
}

// SetIfPresent stores value only when it is non-nil and non-empty. Pointers to
// int and bool are dereferenced.
func (d *Document) SetIfPresent(key string, value any) *Document {
	if v, ok := present(value); ok {
		d.Set(key, v)
	}
	return d
}

// Get returns the value stored under key.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Doc returns the nested document under key, or nil.
func (d *Document) Doc(key string) *Document {
	v, _ := d.values[key].(*Document)
	return v
}

// lookup walks nested documents and returns the value at the final key.
func (d *Document) lookup(keys ...string) (any, bool) {
	cur := d
	for i, k := range keys {
		v, ok := cur.Get(k)
		if !ok {
			return nil, false
		}
		if i == len(keys)-1 {
			return v, true
		}
		next, ok := v.(*Document)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// Keys returns the keys in insertion order.
func (d *Document) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len reports the number of keys.
func (d *Document) Len() int {
	return len(d.keys)
}

func present(value any) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case string:
		return v, v != ""
	case *int:
		if v == nil {
			return nil, false
		}
		return *v, true
	case *bool:
		if v == nil {
			return nil, false
		}
		return *v, true
	case []string:
		return v, len(v) > 0
	case workflow.StringMap:
		return v, len(v) > 0
	case []any:
		return v, len(v) > 0
	case []*Document:
		return v, len(v) > 0
	case *Document:
		return v, v != nil && v.Len() > 0
	}
	return value, true
}

// Node converts the document to a YAML mapping node in block style.
func (d *Document) Node() (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range d.keys {
		vn, err := valueNode(d.values[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		n.Content = append(n.Content, strNode(k), vn)
	}
	return n, nil
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func valueNode(value any) (*yaml.Node, error) {
	switch v := value.(type) {
	case string:
		return strNode(v), nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}, nil
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}, nil
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v, 10)}, nil
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(v, 'g', -1, 64)}, nil
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, s := range v {
			seq.Content = append(seq.Content, strNode(s))
		}
		return seq, nil
	case workflow.StringMap:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, p := range v {
			m.Content = append(m.Content, strNode(p.Key), strNode(p.Value))
		}
		return m, nil
	case *Document:
		if v == nil {
			return nil, fmt.Errorf("nil document")
		}
		return v.Node()
	case []*Document:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v {
			n, err := valueNode(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, item := range v {
			n, err := valueNode(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", value)
}
