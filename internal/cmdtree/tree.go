package cmdtree

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Tree is the learned command grammar of one server. Learn and Reset take the
// write lock; lookups and completion take the read lock.
type Tree struct {
	mu   sync.RWMutex
	root *Node
}

func New() *Tree {
	return &Tree{root: newNode()}
}

// Reset forgets everything learned so far.
func (t *Tree) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = newNode()
}

// Lookup follows path from the root by exact key.
// The returned node must not be read while Learn runs on another goroutine.
func (t *Tree) Lookup(path ...string) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := t.root
	for _, key := range path {
		c, ok := n.Child(key)
		if !ok {
			return nil, false
		}
		n = c
	}
	return n, true
}

// Children returns the child keys found at path, or nil when path is unknown.
func (t *Tree) Children(path ...string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := t.root
	for _, key := range path {
		c, ok := n.Child(key)
		if !ok {
			return nil
		}
		n = c
	}
	return n.Keys()
}

// Size counts distinct nodes below the root.
func (t *Tree) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := make(map[*Node]bool)
	var walk func(*Node)
	walk = func(n *Node) {
		for _, k := range n.keys {
			c := n.children[k]
			if seen[c] {
				continue
			}
			seen[c] = true
			walk(c)
		}
	}
	walk(t.root)
	return len(seen)
}

// Dump writes the tree as an indented outline. A node reached a second time
// through an alias is printed once and then referenced by its first path.
func (t *Tree) Dump(w io.Writer) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	first := make(map[*Node]string)
	var walk func(n *Node, path []string) error
	walk = func(n *Node, path []string) error {
		for _, k := range n.keys {
			c := n.children[k]
			childPath := append(path[:len(path):len(path)], k)
			indent := strings.Repeat("  ", len(path))
			if prev, ok := first[c]; ok {
				if _, err := fmt.Fprintf(w, "%s%s -> %s\n", indent, k, prev); err != nil {
					return err
				}
				continue
			}
			first[c] = strings.Join(childPath, " ")
			if _, err := fmt.Fprintf(w, "%s%s\n", indent, k); err != nil {
				return err
			}
			if err := walk(c, childPath); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(t.root, nil)
}

func (t *Tree) String() string {
	var sb strings.Builder
	_ = t.Dump(&sb)
	return sb.String()
}
