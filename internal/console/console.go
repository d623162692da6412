// Package console is the interactive front end: it owns one RCON session and
// the command grammar learned through it.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/danmuck/rconctl/internal/cmdtree"
	"github.com/danmuck/rconctl/internal/config"
	"github.com/danmuck/rconctl/internal/nbt"
	"github.com/danmuck/rconctl/internal/protocol"
	"github.com/danmuck/rconctl/internal/protocol/frame"
	"github.com/danmuck/rconctl/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 100

var quitWords = map[string]bool{"q": true, "quit": true, "exit": true}

type Options struct {
	Config config.Config
	Out    io.Writer
	// Width reports the output width in columns for NBT formatting.
	Width func() int
}

type Console struct {
	cfg      config.Config
	out      io.Writer
	width    func() int
	tree     *cmdtree.Tree
	resolver *cmdtree.Resolver
	session  *session.Session
}

func New(opts Options) *Console {
	tree := cmdtree.New()
	c := &Console{
		cfg:      opts.Config,
		out:      opts.Out,
		width:    opts.Width,
		tree:     tree,
		resolver: cmdtree.NewResolver(tree),
	}
	if c.out == nil {
		c.out = io.Discard
	}
	if c.width == nil {
		c.width = func() int { return DefaultWidth }
	}
	return c
}

func (c *Console) Tree() *cmdtree.Tree {
	return c.tree
}

func (c *Console) Resolver() *cmdtree.Resolver {
	return c.resolver
}

func (c *Console) Addr() string {
	return net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
}

// Open connects and logs in, replacing any previous session. The learned
// grammar belongs to the old server and is discarded. A rejected password
// returns an error wrapping protocol.ErrAuthenticationFailed.
func (c *Console) Open(ctx context.Context, password string) error {
	_ = c.closeSession()
	c.tree.Reset()
	c.resolver.ResetCycle()

	s, err := session.Dial(ctx, c.cfg.Host, c.cfg.Port, c.cfg.Session())
	if err != nil {
		return err
	}
	ok, err := s.Authenticate(ctx, password)
	if err != nil {
		_ = s.Close()
		return err
	}
	if !ok {
		_ = s.Close()
		return fmt.Errorf("%w: %s", protocol.ErrAuthenticationFailed, c.Addr())
	}
	c.session = s
	log.Info().Str("addr", c.Addr()).Msg("rcon session open")
	fmt.Fprintf(c.out, "Connected to %s\n", c.Addr())
	return nil
}

func (c *Console) Close() error {
	return c.closeSession()
}

func (c *Console) closeSession() error {
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

// Execute runs command on the server. Help output is split so every command
// template sits on its own line, and the templates are learned for completion.
func (c *Console) Execute(ctx context.Context, command string) (string, error) {
	if c.session == nil {
		return "", protocol.ErrSessionClosed
	}
	result, err := c.session.Execute(ctx, command)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(command, cmdtree.HelpCommand) {
		result = strings.ReplaceAll(result, cmdtree.PathMarker, "\n"+cmdtree.PathMarker)
		stats := c.tree.Learn(result)
		log.Debug().Int("templates", stats.Lines).Int("tree_nodes", c.tree.Size()).Msg("help output learned")
	}
	return result, nil
}

// Handle runs one input line and prints its result. It reports true when the
// line asks to leave the console.
func (c *Console) Handle(ctx context.Context, line string) (bool, error) {
	command := strings.TrimSpace(line)
	if command == "" {
		return false, nil
	}
	if quitWords[command] {
		return true, nil
	}
	result, err := c.Execute(ctx, command)
	if err != nil {
		return false, err
	}
	if isDataQuery(command) && c.printNBT(result) {
		return false, nil
	}
	fmt.Fprintln(c.out, result)
	return false, nil
}

func isDataQuery(command string) bool {
	return strings.HasPrefix(command, "data get") ||
		strings.HasPrefix(command, "execute") && strings.Contains(command, "run data get")
}

// printNBT pretty-prints every data report in result. It returns false when
// result holds no report, leaving the caller to print it verbatim.
func (c *Console) printNBT(result string) bool {
	payloads := nbt.Extract(result)
	if len(payloads) == 0 {
		return false
	}
	width := c.width()
	for _, payload := range payloads {
		v, err := nbt.Parse(payload)
		if err != nil {
			log.Debug().Err(err).Msg("nbt payload not parsed")
			fmt.Fprintln(c.out, payload)
			continue
		}
		if err := nbt.Format(c.out, v, width); err != nil {
			log.Warn().Err(err).Msg("nbt output failed")
		}
	}
	return true
}

// fatal reports errors after which the session cannot be used again.
func fatal(err error) bool {
	return errors.Is(err, protocol.ErrConnectionClosed) ||
		errors.Is(err, protocol.ErrSessionClosed) ||
		errors.Is(err, frame.ErrMalformedFrame) ||
		errors.Is(err, context.Canceled)
}
