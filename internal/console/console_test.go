package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/rconctl/internal/config"
	"github.com/danmuck/rconctl/internal/protocol"
	"github.com/danmuck/rconctl/internal/testutil/rcontest"
	"github.com/danmuck/rconctl/internal/testutil/testlog"
)

const helpOutput = "/advancement (grant|revoke)/data get block <targetPos> [<path>]/data get entity <target> [<path>]" +
	"/gamemode (survival|creative|adventure|spectator)/teleport <targets> <location>/tp -> teleport"

func newTestConsole(t *testing.T, opts rcontest.Options) (*Console, *bytes.Buffer, *rcontest.Server) {
	t.Helper()
	srv := rcontest.NewServer(t, opts)
	cfg := config.DefaultConfig()
	cfg.Host = srv.Host()
	cfg.Port = srv.Port()

	var out bytes.Buffer
	c := New(Options{Config: cfg, Out: &out, Width: func() int { return 60 }})
	t.Cleanup(func() { _ = c.Close() })
	return c, &out, srv
}

func TestOpenAnnouncesConnection(t *testing.T) {
	testlog.Start(t)
	c, out, _ := newTestConsole(t, rcontest.Options{Password: "pw"})

	if err := c.Open(context.Background(), "pw"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := out.String(); got != "Connected to "+c.Addr()+"\n" {
		t.Fatalf("unexpected banner: %q", got)
	}
}

func TestOpenWrongPassword(t *testing.T) {
	testlog.Start(t)
	c, _, _ := newTestConsole(t, rcontest.Options{Password: "pw"})

	err := c.Open(context.Background(), "nope")
	if !errors.Is(err, protocol.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
	if _, err := c.Execute(context.Background(), "list"); !errors.Is(err, protocol.ErrSessionClosed) {
		t.Fatalf("expected no session after failed login, got %v", err)
	}
}

func TestHelpIsSplitAndLearned(t *testing.T) {
	testlog.Start(t)
	c, out, _ := newTestConsole(t, rcontest.Options{
		Password:     "pw",
		Responses:    map[string]string{"help": helpOutput},
		FragmentSize: 50,
	})
	if err := c.Open(context.Background(), "pw"); err != nil {
		t.Fatalf("open: %v", err)
	}
	out.Reset()

	if quit, err := c.Handle(context.Background(), "help"); err != nil || quit {
		t.Fatalf("handle help quit=%v err=%v", quit, err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 help lines, got %d: %q", len(lines), out.String())
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "/") {
			t.Fatalf("help line not split at a command: %q", line)
		}
	}

	tp, ok := c.Tree().Lookup("tp")
	if !ok {
		t.Fatalf("alias tp not learned")
	}
	teleport, _ := c.Tree().Lookup("teleport")
	if tp != teleport {
		t.Fatalf("tp should share the teleport node")
	}
	if got := c.Tree().Children("gamemode"); len(got) != 4 {
		t.Fatalf("unexpected gamemode children: %v", got)
	}
}

func TestCompleterAfterHelp(t *testing.T) {
	testlog.Start(t)
	c, _, _ := newTestConsole(t, rcontest.Options{
		Password:  "pw",
		Responses: map[string]string{"help": helpOutput},
	})
	if err := c.Open(context.Background(), "pw"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := c.Execute(context.Background(), "help"); err != nil {
		t.Fatalf("help: %v", err)
	}

	comp := &completer{resolver: c.Resolver()}
	line := []rune("data get b")
	got, length := comp.Do(line, len(line))
	if length != 1 || len(got) != 1 || string(got[0]) != "lock " {
		t.Fatalf("first completion got=%q length=%d", got, length)
	}
	got, _ = comp.Do(line, len(line))
	if len(got) != 1 || string(got[0]) != "lock" {
		t.Fatalf("repeated completion should not add a space, got=%q", got)
	}

	line = []rune("help game")
	got, length = comp.Do(line, len(line))
	if length != 4 || len(got) != 1 || string(got[0]) != "mode " {
		t.Fatalf("help completion got=%q length=%d", got, length)
	}

	line = []rune("gamemode ")
	got, length = comp.Do(line, len(line))
	if length != 0 || len(got) != 4 {
		t.Fatalf("choice completion got=%q length=%d", got, length)
	}

	line = []rune("weather ")
	if got, _ := comp.Do(line, len(line)); got != nil {
		t.Fatalf("unknown command should not complete, got=%q", got)
	}
}

func TestOpenResetsLearnedTree(t *testing.T) {
	testlog.Start(t)
	c, _, _ := newTestConsole(t, rcontest.Options{
		Password:  "pw",
		Responses: map[string]string{"help": helpOutput},
	})
	if err := c.Open(context.Background(), "pw"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := c.Execute(context.Background(), "help"); err != nil {
		t.Fatalf("help: %v", err)
	}
	if c.Tree().Size() == 0 {
		t.Fatalf("expected learned nodes")
	}
	if err := c.Open(context.Background(), "pw"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if c.Tree().Size() != 0 {
		t.Fatalf("tree should be reset on open")
	}
}

func TestDataGetIsPrettyPrinted(t *testing.T) {
	testlog.Start(t)
	report := `Steve has the following entity data: {Pos: [1.0d, 64.0d, -3.5d], Inventory: [{Slot: 0b, id: "minecraft:diamond_sword", Count: 1b}]}`
	c, out, _ := newTestConsole(t, rcontest.Options{
		Password: "pw",
		Responses: map[string]string{
			"data get entity Steve":                   report,
			"execute as Steve run data get entity @s": report,
			"data get entity Nobody":                  "No entity was found",
			"execute as Steve run say hi":             "[Steve] hi",
			"data get entity Broken":                  "Broken has the following entity data: {Pos: [",
		},
	})
	if err := c.Open(context.Background(), "pw"); err != nil {
		t.Fatalf("open: %v", err)
	}

	want := strings.Join([]string{
		"{",
		"  Pos: [1.0d, 64.0d, -3.5d],",
		"  Inventory: [",
		`    {Slot: 0b, id: "minecraft:diamond_sword", Count: 1b}`,
		"  ]",
		"}",
		"",
	}, "\n")
	for _, cmd := range []string{"data get entity Steve", "execute as Steve run data get entity @s"} {
		out.Reset()
		if _, err := c.Handle(context.Background(), cmd); err != nil {
			t.Fatalf("%s: %v", cmd, err)
		}
		if out.String() != want {
			t.Fatalf("%s printed:\n%s", cmd, out.String())
		}
	}

	cases := map[string]string{
		"data get entity Nobody":      "No entity was found\n",
		"execute as Steve run say hi": "[Steve] hi\n",
		"data get entity Broken":      "{Pos: [\n",
	}
	for cmd, expected := range cases {
		out.Reset()
		if _, err := c.Handle(context.Background(), cmd); err != nil {
			t.Fatalf("%s: %v", cmd, err)
		}
		if out.String() != expected {
			t.Fatalf("%s printed %q, want %q", cmd, out.String(), expected)
		}
	}
}

func TestHandleQuitWordsAndBlankLines(t *testing.T) {
	testlog.Start(t)
	c, _, srv := newTestConsole(t, rcontest.Options{Password: "pw"})
	if err := c.Open(context.Background(), "pw"); err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, word := range []string{"q", "quit", " exit "} {
		quit, err := c.Handle(context.Background(), word)
		if err != nil || !quit {
			t.Fatalf("%q: quit=%v err=%v", word, quit, err)
		}
	}
	if quit, err := c.Handle(context.Background(), "   "); quit || err != nil {
		t.Fatalf("blank line quit=%v err=%v", quit, err)
	}
	// auth + decoy only; nothing was sent for quit words or blank lines
	if n := len(srv.Received()); n != 2 {
		t.Fatalf("expected only the login on the wire, got %d packets", n)
	}
}

func TestHandleUnknownCommandIsPrinted(t *testing.T) {
	testlog.Start(t)
	c, out, _ := newTestConsole(t, rcontest.Options{Password: "pw"})
	if err := c.Open(context.Background(), "pw"); err != nil {
		t.Fatalf("open: %v", err)
	}
	out.Reset()
	if _, err := c.Handle(context.Background(), "frobnicate"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if out.String() != rcontest.UnknownCommand+"\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestConnectionClosedIsFatal(t *testing.T) {
	testlog.Start(t)
	c, _, _ := newTestConsole(t, rcontest.Options{
		Password: "pw",
		CloseOn:  map[string]bool{"stop": true},
	})
	if err := c.Open(context.Background(), "pw"); err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err := c.Handle(context.Background(), "stop")
	if !errors.Is(err, protocol.ErrConnectionClosed) || !fatal(err) {
		t.Fatalf("expected fatal ErrConnectionClosed, got %v", err)
	}
	_, err = c.Handle(context.Background(), "list")
	if !fatal(err) {
		t.Fatalf("expected fatal error after close, got %v", err)
	}
}

func TestFatalClassification(t *testing.T) {
	testlog.Start(t)
	if fatal(protocol.ErrTimeout) {
		t.Fatalf("timeouts should not end the console")
	}
	if !fatal(context.Canceled) {
		t.Fatalf("cancellation should end the console")
	}
}
