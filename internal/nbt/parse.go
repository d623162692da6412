package nbt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var ErrSyntax = errors.New("nbt: syntax error")

// maxDepth bounds compound and list nesting.
const maxDepth = 512

var numberPattern = regexp.MustCompile(`^[-+]?(\d+(\.\d*)?|\.\d+)([eE][-+]?\d+)?[bBsSlLfFdD]?$`)

var snbtLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
	{Name: "ArrayOpen", Pattern: `\[\s*[BIL]\s*;`},
	{Name: "Word", Pattern: `[A-Za-z0-9_.+\-]+`},
	{Name: "Punct", Pattern: `[{}\[\]:,]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var snbtParser = participle.MustBuild[snbtValue](
	participle.Lexer(snbtLexer),
	participle.Elide("Whitespace"),
)

type snbtValue struct {
	Compound *snbtCompound `parser:"  @@"`
	Array    *snbtArray    `parser:"| @@"`
	List     *snbtList     `parser:"| @@"`
	Quoted   *string       `parser:"| @String"`
	Word     *string       `parser:"| @Word"`
}

type snbtCompound struct {
	Pairs []*snbtPair `parser:"'{' ( @@ ( ',' @@ )* )? '}'"`
}

type snbtPair struct {
	Key   string     `parser:"@( String | Word ) ':'"`
	Value *snbtValue `parser:"@@"`
}

type snbtArray struct {
	Open  string   `parser:"@ArrayOpen"`
	Items []string `parser:"( @Word ( ',' @Word )* )? ']'"`
}

type snbtList struct {
	Items []*snbtValue `parser:"'[' ( @@ ( ',' @@ )* )? ']'"`
}

// Parse reads exactly one value from text.
func Parse(text string) (Value, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty input", ErrSyntax)
	}
	if err := checkDepth(text); err != nil {
		return nil, err
	}
	ast, err := snbtParser.ParseString("", text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return ast.value()
}

func (v *snbtValue) value() (Value, error) {
	switch {
	case v == nil:
		return nil, fmt.Errorf("%w: missing value", ErrSyntax)
	case v.Compound != nil:
		out := make(Compound, 0, len(v.Compound.Pairs))
		for _, p := range v.Compound.Pairs {
			val, err := p.Value.value()
			if err != nil {
				return nil, err
			}
			out = append(out, Field{Key: unquote(p.Key), Value: val})
		}
		return out, nil
	case v.Array != nil:
		out := List{ArrayType: strings.Trim(v.Array.Open, "[; \t\r\n")}
		for _, item := range v.Array.Items {
			out.Items = append(out.Items, word(item))
		}
		return out, nil
	case v.List != nil:
		var out List
		for _, item := range v.List.Items {
			val, err := item.value()
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, val)
		}
		return out, nil
	case v.Quoted != nil:
		return String(unquote(*v.Quoted)), nil
	case v.Word != nil:
		return word(*v.Word), nil
	default:
		return nil, fmt.Errorf("%w: missing value", ErrSyntax)
	}
}

// word classifies a bare token as a Number or a String.
func word(w string) Value {
	if numberPattern.MatchString(w) {
		return Number(w)
	}
	return String(w)
}

// unquote strips the quotes from a String token; a backslash keeps the next
// character literally. Bare keys come through unchanged.
func unquote(tok string) string {
	if len(tok) < 2 || (tok[0] != '"' && tok[0] != '\'') {
		return tok
	}
	body := tok[1 : len(tok)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		sb.WriteByte(body[i])
	}
	return sb.String()
}

// checkDepth rejects nesting past maxDepth before the parser recurses into it.
func checkDepth(text string) error {
	depth := 0
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '{' || c == '[':
			depth++
			if depth > maxDepth {
				return fmt.Errorf("%w: nesting deeper than %d at offset %d", ErrSyntax, maxDepth, i)
			}
		case c == '}' || c == ']':
			depth--
		}
	}
	return nil
}
