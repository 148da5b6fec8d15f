package datatree

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	tagNull  = "!!null"
	tagBool  = "!!bool"
	tagInt   = "!!int"
	tagFloat = "!!float"
	tagMerge = "!!merge"
)

// maxAliasDepth bounds alias expansion so a self-referencing document
// cannot loop forever.
const maxAliasDepth = 64

// maxAliasValues bounds the number of values copied out of anchors, so a
// small document of nested aliases cannot expand without limit.
const maxAliasValues = 100_000

// ErrExcessiveAliasing is returned for documents whose aliases expand past
// maxAliasValues.
var ErrExcessiveAliasing = errors.New("document contains excessive aliasing")

type decoder struct {
	aliased int
}

// Decode parses a single YAML document into a Value. An empty document
// decodes to an empty mapping.
func Decode(data []byte) (*Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(bytes.TrimSpace(data)) == 0 {
		return NewMapping(), nil
	}
	d := &decoder{}
	return d.fromNode(&doc, 0)
}

func (d *decoder) fromNode(n *yaml.Node, depth int) (*Value, error) {
	if depth > maxAliasDepth {
		return nil, fmt.Errorf("line %d: alias nesting too deep", n.Line)
	}
	if depth > 0 {
		d.aliased++
		if d.aliased > maxAliasValues {
			return nil, fmt.Errorf("line %d: %w", n.Line, ErrExcessiveAliasing)
		}
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return NewMapping(), nil
		}
		return d.fromNode(n.Content[0], depth)

	case yaml.AliasNode:
		if n.Alias == nil {
			return Null(), nil
		}
		return d.fromNode(n.Alias, depth+1)

	case yaml.SequenceNode:
		seq := NewSequence()
		for _, child := range n.Content {
			item, err := d.fromNode(child, depth)
			if err != nil {
				return nil, err
			}
			seq.seq = append(seq.seq, item)
		}
		return seq, nil

	case yaml.MappingNode:
		m := NewMapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.ShortTag() == tagMerge {
				if err := d.mergeInto(m, valNode, depth); err != nil {
					return nil, err
				}
				continue
			}
			item, err := d.fromNode(valNode, depth)
			if err != nil {
				return nil, err
			}
			_ = m.Set(keyNode.Value, item)
		}
		return m, nil

	case yaml.ScalarNode:
		return fromScalar(n)
	}

	return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}

// mergeInto applies a "<<" merge key. Keys already present win, as YAML
// merge semantics require.
func (d *decoder) mergeInto(m *Value, src *yaml.Node, depth int) error {
	var sources []*yaml.Node
	if src.Kind == yaml.SequenceNode {
		sources = src.Content
	} else {
		sources = []*yaml.Node{src}
	}
	for _, s := range sources {
		v, err := d.fromNode(s, depth+1)
		if err != nil {
			return err
		}
		if v.Kind() != KindMapping {
			return fmt.Errorf("line %d: merge value is a %s, want mapping", s.Line, v.Kind())
		}
		for _, k := range v.keys {
			if _, exists := m.vals[k]; !exists {
				_ = m.Set(k, v.vals[k])
			}
		}
	}
	return nil
}

func fromScalar(n *yaml.Node) (*Value, error) {
	switch n.ShortTag() {
	case tagNull:
		return Null(), nil
	case tagBool:
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return Bool(b), nil
	case tagInt:
		var i int64
		if err := n.Decode(&i); err == nil {
			return Int(i), nil
		}
		var f float64
		if err := n.Decode(&f); err == nil {
			return Float(f), nil
		}
		return String(n.Value), nil
	case tagFloat:
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return Float(f), nil
	default:
		// !!str, !!timestamp, !!binary and custom tags keep their source text.
		return String(n.Value), nil
	}
}
