package cmdtree

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// HelpCommand takes the root grammar as its argument space.
const HelpCommand = "help"

// MissReason is reported when the typed words leave the known grammar.
const MissReason = "unknown command, cannot complete"

// Completion is the answer to one completion request.
type Completion struct {
	Candidates []string
	// InsertSpace asks the editor to add a space after the single candidate.
	InsertSpace bool
	Miss        bool
	Reason      string
}

// Resolver answers completion requests against a Tree and remembers the
// last single-candidate request so the trailing space is offered only once.
type Resolver struct {
	tree *Tree

	mu   sync.Mutex
	last string
}

func NewResolver(tree *Tree) *Resolver {
	return &Resolver{tree: tree}
}

// Complete returns the children of the node reached by preceding whose keys
// start with partial. An unknown word matches any placeholder child.
func (r *Resolver) Complete(preceding []string, partial string) Completion {
	if len(preceding) > 0 && preceding[0] == HelpCommand {
		preceding = preceding[1:]
	}

	candidates, ok := r.tree.candidates(preceding, partial)
	if !ok {
		log.Debug().Strs("words", preceding).Str("partial", partial).Msg(MissReason)
		r.ResetCycle()
		return Completion{Miss: true, Reason: MissReason}
	}

	out := Completion{Candidates: candidates}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(candidates) != 1 {
		r.last = ""
		return out
	}
	key := requestKey(preceding, partial, candidates[0])
	out.InsertSpace = key != r.last
	r.last = key
	return out
}

// CompleteLine completes the last word of line, the text left of the cursor.
// It also returns the partial word it completed.
func (r *Resolver) CompleteLine(line string) (Completion, string) {
	words := strings.Fields(line)
	partial := ""
	if len(words) > 0 && !endsWithSpace(line) {
		partial = words[len(words)-1]
		words = words[:len(words)-1]
	}
	return r.Complete(words, partial), partial
}

// ResetCycle forgets the last request; the next single candidate gets a space again.
func (r *Resolver) ResetCycle() {
	r.mu.Lock()
	r.last = ""
	r.mu.Unlock()
}

func (t *Tree) candidates(words []string, partial string) ([]string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	frontier := []*Node{t.root}
	for _, word := range words {
		frontier = step(frontier, word)
		if len(frontier) == 0 {
			return nil, false
		}
	}

	var out []string
	seen := make(map[string]bool)
	for _, n := range frontier {
		for _, k := range n.keys {
			if seen[k] || !strings.HasPrefix(k, partial) {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	return out, true
}

// step advances every node in frontier by one typed word.
func step(frontier []*Node, word string) []*Node {
	var next []*Node
	seen := make(map[*Node]bool)
	add := func(n *Node) {
		if !seen[n] {
			seen[n] = true
			next = append(next, n)
		}
	}
	for _, n := range frontier {
		if c, ok := n.Child(word); ok {
			add(c)
			continue
		}
		for _, k := range n.keys {
			if IsPlaceholder(k) {
				add(n.children[k])
			}
		}
	}
	return next
}

func requestKey(words []string, partial, candidate string) string {
	return strings.Join(words, " ") + "\x00" + partial + "\x00" + candidate
}

func endsWithSpace(s string) bool {
	if s == "" {
		return true
	}
	switch s[len(s)-1] {
	case ' ', '\t':
		return true
	}
	return false
}
