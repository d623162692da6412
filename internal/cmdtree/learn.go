package cmdtree

import (
	"strings"

	"github.com/danmuck/rconctl/internal/observability"
	"github.com/rs/zerolog/log"
)

// PathMarker starts every command template in help output.
const PathMarker = "/"

// AliasArrow separates an alias from the command it stands for.
const AliasArrow = "->"

type TokenKind int

const (
	Plain TokenKind = iota
	AliasMark
	RequiredChoice
	OptionalChoice
)

func (k TokenKind) String() string {
	switch k {
	case Plain:
		return "plain"
	case AliasMark:
		return "alias"
	case RequiredChoice:
		return "required_choice"
	case OptionalChoice:
		return "optional_choice"
	default:
		return "unknown"
	}
}

// Token is one whitespace-separated word of a command template.
type Token struct {
	Kind TokenKind
	Text string
	// Choices holds the alternatives of a choice group, in order.
	Choices []string
}

// Tokenize classifies the words of one template line (marker already removed).
func Tokenize(template string) []Token {
	fields := strings.Fields(template)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, classify(f))
	}
	return tokens
}

func classify(word string) Token {
	switch {
	case word == AliasArrow:
		return Token{Kind: AliasMark, Text: word}
	case len(word) >= 2 && word[0] == '(' && word[len(word)-1] == ')':
		return Token{Kind: RequiredChoice, Text: word, Choices: strings.Split(word[1:len(word)-1], "|")}
	case len(word) >= 2 && word[0] == '[' && word[len(word)-1] == ']':
		return Token{Kind: OptionalChoice, Text: word, Choices: strings.Split(word[1:len(word)-1], "|")}
	default:
		return Token{Kind: Plain, Text: word}
	}
}

// LearnStats summarizes one Learn call.
type LearnStats struct {
	Lines           int
	NodesAdded      int
	AliasesBound    int
	AliasesRejected int
}

// Learn merges the command templates found in help output into the tree.
// Only lines starting with PathMarker are read. Learning never removes or
// replaces a node, so repeating it is harmless.
func (t *Tree) Learn(helpText string) LearnStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	var stats LearnStats
	for _, line := range strings.Split(helpText, "\n") {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, PathMarker) {
			continue
		}
		stats.Lines++
		t.learnLine(Tokenize(strings.TrimPrefix(line, PathMarker)), &stats)
	}

	observability.RecordLearned(stats.NodesAdded)
	log.Debug().
		Int("lines", stats.Lines).
		Int("nodes_added", stats.NodesAdded).
		Int("aliases", stats.AliasesBound).
		Int("aliases_rejected", stats.AliasesRejected).
		Msg("learned command templates")
	return stats
}

func (t *Tree) learnLine(tokens []Token, stats *LearnStats) {
	cur := t.root
	for i, tok := range tokens {
		if i+1 < len(tokens) && tokens[i+1].Kind == AliasMark {
			if i+2 >= len(tokens) {
				// "x ->" without a target: x is still a command.
				t.descend(cur, tok.Text, stats)
				return
			}
			t.alias(cur, tok.Text, tokens[i+2].Text, stats)
			return
		}

		switch tok.Kind {
		case RequiredChoice:
			t.addChoices(cur, tok.Choices, stats)
			return
		case OptionalChoice:
			if len(tok.Choices) == 1 {
				// "[]" has nothing to learn; keep walking the line.
				if tok.Choices[0] != "" {
					cur = t.descend(cur, tok.Choices[0], stats)
				}
				continue
			}
			t.addChoices(cur, tok.Choices, stats)
			return
		case AliasMark:
			// A leading or repeated arrow carries no command.
			return
		default:
			cur = t.descend(cur, tok.Text, stats)
		}
	}
}

func (t *Tree) descend(n *Node, key string, stats *LearnStats) *Node {
	c, created := n.ensure(key)
	if created {
		stats.NodesAdded++
	}
	return c
}

func (t *Tree) addChoices(n *Node, choices []string, stats *LearnStats) {
	for _, choice := range choices {
		if choice == "" {
			continue
		}
		t.descend(n, choice, stats)
	}
}

func (t *Tree) alias(cur *Node, name, targetName string, stats *LearnStats) {
	target := t.descend(t.root, targetName, stats)
	if target.reaches(cur) {
		stats.AliasesRejected++
		log.Warn().Str("alias", name).Str("target", targetName).Msg("alias would form a cycle; skipped")
		return
	}
	if cur.bind(name, target) {
		stats.AliasesBound++
	}
}
