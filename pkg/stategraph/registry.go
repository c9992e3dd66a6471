package stategraph

import (
	"github.com/randalmurphal/stategraph/pkg/stategraph/registry"
)

// NodeRegistry holds named node transforms in registration order.
// It is safe for concurrent use.
type NodeRegistry struct {
	nodes *registry.Registry[string, NodeFunc]
}

// NewNodeRegistry creates an empty registry.
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{nodes: registry.New[string, NodeFunc]()}
}

// Register adds a node. It fails with *DuplicateNodeError when name is
// already registered and with ErrInvalidNodeName for empty, reserved, or
// whitespace-containing names.
//
// Panics if fn is nil.
func (r *NodeRegistry) Register(name string, fn NodeFunc) error {
	if fn == nil {
		panic("stategraph: node function cannot be nil")
	}
	if err := validateNodeName(name); err != nil {
		return err
	}
	if !r.nodes.RegisterUnique(name, fn) {
		return &DuplicateNodeError{Name: name}
	}
	return nil
}

// Lookup returns the transform for name, or *UnknownNodeError.
func (r *NodeRegistry) Lookup(name string) (NodeFunc, error) {
	fn, ok := r.nodes.Get(name)
	if !ok {
		return nil, &UnknownNodeError{Name: name}
	}
	return fn, nil
}

// Has returns true if name is registered.
func (r *NodeRegistry) Has(name string) bool {
	return r.nodes.Has(name)
}

// Names returns node names in registration order.
func (r *NodeRegistry) Names() []string {
	return r.nodes.Keys()
}

// Len returns the number of registered nodes.
func (r *NodeRegistry) Len() int {
	return r.nodes.Len()
}

// clone returns an independent copy for a compiled graph.
func (r *NodeRegistry) clone() *NodeRegistry {
	return &NodeRegistry{nodes: r.nodes.Clone()}
}

// replace swaps the transform for an existing node.
func (r *NodeRegistry) replace(name string, fn NodeFunc) {
	r.nodes.Register(name, fn)
}
