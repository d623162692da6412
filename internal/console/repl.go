package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/danmuck/rconctl/internal/cmdtree"
	"github.com/danmuck/rconctl/internal/config"
	"github.com/rs/zerolog/log"
)

const Prompt = "> "

// Run reads commands until a quit word, end of input, an interrupt on an
// empty line, or a fatal session error. Only the fatal error is returned.
func (c *Console) Run(ctx context.Context) error {
	history, err := config.ExpandHome(c.cfg.HistoryFile)
	if err != nil {
		return err
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          Prompt,
		HistoryFile:     history,
		HistoryLimit:    c.cfg.HistoryLimit,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    &completer{resolver: c.resolver},
		Stdin:           os.Stdin,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()
	c.out = rl.Stdout()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("readline: %w", err)
		}

		quit, err := c.Handle(ctx, line)
		if err != nil {
			if fatal(err) {
				return err
			}
			log.Error().Err(err).Str("command", line).Msg("command failed")
			fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
			continue
		}
		if quit {
			return nil
		}
	}
}

// completer adapts the resolver to readline. Candidates are returned as the
// text still missing after the typed part of the word.
type completer struct {
	resolver *cmdtree.Resolver
}

func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	comp, partial := c.resolver.CompleteLine(string(line[:pos]))
	if len(comp.Candidates) == 0 {
		return nil, 0
	}
	out := make([][]rune, 0, len(comp.Candidates))
	for _, cand := range comp.Candidates {
		suffix := cand[len(partial):]
		if comp.InsertSpace {
			suffix += " "
		}
		out = append(out, []rune(suffix))
	}
	return out, len([]rune(partial))
}
