package datatree

import (
	"gopkg.in/yaml.v3"
)

// MarshalYAML encodes v keeping mapping key order.
func (v *Value) MarshalYAML() (any, error) {
	return v.toNode()
}

func (v *Value) toNode() (*yaml.Node, error) {
	switch v.Kind() {
	case KindSequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.seq {
			child, err := item.toNode()
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case KindMapping:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range v.keys {
			child, err := v.vals[k].toNode()
			if err != nil {
				return nil, err
			}
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
			n.Content = append(n.Content, key, child)
		}
		return n, nil
	case KindString:
		// plain string, so markup encodes as text
		n := &yaml.Node{}
		return n, n.Encode(v.s)
	default:
		n := &yaml.Node{}
		return n, n.Encode(v.Interface())
	}
}
