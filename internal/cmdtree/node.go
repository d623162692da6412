// Package cmdtree holds the command grammar learned from server help output
// and resolves tab completions against it.
package cmdtree

import "strings"

// Node is one position in the command grammar. Children keep the order in
// which they were first learned. Two parents may hold the same *Node when a
// command is an alias of another.
type Node struct {
	keys     []string
	children map[string]*Node
}

func newNode() *Node {
	return &Node{children: make(map[string]*Node)}
}

// Child returns the child stored under key.
func (n *Node) Child(key string) (*Node, bool) {
	c, ok := n.children[key]
	return c, ok
}

// Keys returns the child keys in insertion order.
func (n *Node) Keys() []string {
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

func (n *Node) Len() int {
	return len(n.keys)
}

// ensure fetches or creates the child under key and reports whether it was created.
func (n *Node) ensure(key string) (*Node, bool) {
	if c, ok := n.children[key]; ok {
		return c, false
	}
	c := newNode()
	n.children[key] = c
	n.keys = append(n.keys, key)
	return c, true
}

// bind stores target under key unless key is already taken.
func (n *Node) bind(key string, target *Node) bool {
	if _, ok := n.children[key]; ok {
		return false
	}
	n.children[key] = target
	n.keys = append(n.keys, key)
	return true
}

// reaches reports whether want is n or lies below it.
func (n *Node) reaches(want *Node) bool {
	seen := make(map[*Node]bool)
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == want {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for _, k := range cur.keys {
			stack = append(stack, cur.children[k])
		}
	}
	return false
}

// IsPlaceholder reports whether key stands for an arbitrary argument, e.g. <target>.
func IsPlaceholder(key string) bool {
	return len(key) >= 2 && strings.HasPrefix(key, "<") && strings.HasSuffix(key, ">")
}
