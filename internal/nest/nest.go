// Package nest holds arbitrarily nested model state and maps transforms
// over every leaf of it.
//
// A model's state is a tree of named components. Interior nodes are Records
// and leaves are float tensors whose leading axis indexes examples (or
// hypotheses, once the state has been tiled to the beam). The decoder never
// looks inside a model's state; it only reshapes and gathers leaves.
package nest

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samcharles93/beam/internal/tensor"
)

// Node is either a Leaf or a Record.
type Node interface {
	node()
}

// Leaf is a state component with examples along its leading axis.
type Leaf struct {
	tensor.Float
}

// Record is a set of named state components.
type Record map[string]Node

func (Leaf) node()   {}
func (Record) node() {}

// NewLeaf wraps t as a leaf.
func NewLeaf(t tensor.Float) Leaf { return Leaf{Float: t} }

// IsEmpty reports whether n carries no leaves. A nil node and an empty
// Record both mark a stateless model.
func IsEmpty(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case Leaf:
		return false
	case Record:
		for _, k := range sortedKeys(v) {
			if !IsEmpty(v[k]) {
				return false
			}
		}
		return true
	default:
		panic(fmt.Sprintf("nest: unknown node type %T", n))
	}
}

// Map returns a tree with the same structure as n where each leaf is
// replaced by fn(leaf). Keys are visited in sorted order. A nil node maps to
// an empty Record.
func Map(n Node, fn func(tensor.Float) tensor.Float) Node {
	switch v := n.(type) {
	case nil:
		return Record{}
	case Leaf:
		return Leaf{Float: fn(v.Float)}
	case Record:
		out := make(Record, len(v))
		for _, k := range sortedKeys(v) {
			out[k] = Map(v[k], fn)
		}
		return out
	default:
		panic(fmt.Sprintf("nest: unknown node type %T", n))
	}
}

// MapAll applies Map to every tree in ns.
func MapAll(ns []Node, fn func(tensor.Float) tensor.Float) []Node {
	out := make([]Node, len(ns))
	for i, n := range ns {
		out[i] = Map(n, fn)
	}
	return out
}

// Path names a leaf by the record keys leading to it.
type Path []string

func (p Path) String() string { return strings.Join(p, "/") }

// Leaves returns every leaf of n with its path, in the order Map visits
// them.
func Leaves(n Node) ([]Path, []tensor.Float) {
	var (
		paths  []Path
		leaves []tensor.Float
	)
	var walk func(prefix Path, n Node)
	walk = func(prefix Path, n Node) {
		switch v := n.(type) {
		case nil:
		case Leaf:
			paths = append(paths, slices.Clone(prefix))
			leaves = append(leaves, v.Float)
		case Record:
			for _, k := range sortedKeys(v) {
				walk(append(prefix, k), v[k])
			}
		default:
			panic(fmt.Sprintf("nest: unknown node type %T", n))
		}
	}
	walk(nil, n)
	return paths, leaves
}

// Get returns the leaf at path, if any.
func Get(n Node, path ...string) (tensor.Float, bool) {
	for _, k := range path {
		r, ok := n.(Record)
		if !ok {
			return tensor.Float{}, false
		}
		n, ok = r[k]
		if !ok {
			return tensor.Float{}, false
		}
	}
	leaf, ok := n.(Leaf)
	if !ok {
		return tensor.Float{}, false
	}
	return leaf.Float, true
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
