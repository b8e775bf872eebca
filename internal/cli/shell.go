package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/calvinalkan/civicache/internal/replay"
	"github.com/calvinalkan/civicache/pkg/civicache"
)

const shellPrompt = "civicache> "

var shellCommands = []string{
	"advance", "comment", "expire", "help", "lists", "ops",
	"pending", "report", "snapshot", "stats", "exit", "quit",
}

// lineReader is the part of [liner.State] the shell uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// scanReader reads lines from a non-terminal input.
type scanReader struct {
	scanner *bufio.Scanner
}

func (s *scanReader) Prompt(string) (string, error) {
	if !s.scanner.Scan() {
		err := s.scanner.Err()
		if err != nil {
			return "", err
		}

		return "", io.EOF
	}

	return s.scanner.Text(), nil
}

func (*scanReader) AppendHistory(string) {}

// ShellCmd returns the shell command.
func ShellCmd(a *app) *Command {
	fs := flag.NewFlagSet("shell", flag.ContinueOnError)
	noHistory := fs.Bool("no-history", false, "Do not read or write the history file")

	return &Command{
		Flags: fs,
		Usage: "shell [--no-history]",
		Short: "Interactive session against a live cache",
		Long: `Start an interactive session against a fresh cache on virtual time.

Lines starting with '{' are replay events (see "civicache replay --help").
Type 'help' for the other commands.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("%w: %s", ErrTooManyArgs, strings.Join(args, " "))
			}

			return execShell(ctx, a, o, !*noHistory)
		},
	}
}

type shell struct {
	e   *engine
	o   *IO
	log *zap.Logger
}

func execShell(ctx context.Context, a *app, o *IO, history bool) error {
	e, err := a.newEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	sh := &shell{e: e, o: o, log: a.log}

	f, interactive := o.in.(*os.File)
	if !interactive || f != os.Stdin {
		if o.in == nil {
			return ErrNoInput
		}

		scanner := bufio.NewScanner(o.in)

		return sh.loop(ctx, &scanReader{scanner: scanner})
	}

	state := liner.NewLiner()
	defer func() { _ = state.Close() }()

	state.SetCtrlCAborts(true)
	state.SetCompleter(completeShell)

	historyPath := a.cfg.HistoryFileAbs

	if history {
		data, readErr := readHistory(historyPath)
		if readErr != nil {
			a.log.Warn("history not loaded", zap.Error(readErr))
		} else if len(data) > 0 {
			_, _ = state.ReadHistory(bytes.NewReader(data))
		}
	}

	o.Println("civicache shell. Type 'help' for commands.")

	loopErr := sh.loop(ctx, state)

	if history {
		var buf bytes.Buffer

		_, _ = state.WriteHistory(&buf)

		err = writeHistory(historyPath, buf.Bytes())
		if err != nil {
			a.log.Warn("history not saved", zap.Error(err))
		}
	}

	return loopErr
}

func (sh *shell) loop(ctx context.Context, r lineReader) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line, err := r.Prompt(shellPrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		r.AppendHistory(line)

		if !sh.exec(line) {
			return nil
		}
	}
}

// exec runs one line and reports whether the session continues. Errors are
// printed, not returned; a typo must not end the session.
func (sh *shell) exec(line string) bool {
	if strings.HasPrefix(line, "{") {
		ev, _, err := replay.ParseLine([]byte(line))
		if err == nil {
			err = sh.e.player.Apply(ev)
		}

		sh.report(err)

		return true
	}

	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "exit", "quit", "q":
		return false
	case "help", "?":
		sh.help()
	case "ops":
		sh.o.Println(strings.Join(replay.Ops(), " "))
	case "report":
		sh.report(sh.showEntity(civicache.KindReport, args))
	case "comment":
		sh.report(sh.showEntity(civicache.KindComment, args))
	case "lists":
		sh.lists()
	case "pending":
		sh.pending()
	case "stats":
		sh.stats()
	case "snapshot":
		sh.report(writeJSON(sh.o.Out(), sh.e.cache.Snapshot()))
	case "advance":
		sh.report(sh.advance(args))
	case "expire":
		sh.o.Printf("expired %d\n", sh.e.cache.ExpirePending())
	default:
		sh.o.Printf("unknown command: %s (type 'help' for commands)\n", cmd)
	}

	return true
}

func (sh *shell) report(err error) {
	if err != nil {
		sh.o.Println("error:", err)
	}
}

func (sh *shell) help() {
	sh.o.Println(`Commands:
  {"op":...}            Apply a replay event
  ops                   List replay event ops
  report <id>           Show a cached report
  comment <id>          Show a cached comment
  lists                 Show every tracked list
  pending               Show optimistic entities and their state
  stats                 Show the stats aggregate
  advance <duration>    Move virtual time forward (fires timers)
  expire                Fail pending entities older than pending_ttl
  snapshot              Print the full snapshot as JSON
  help                  Show this help
  exit / quit / q       Exit`)
}

func (sh *shell) showEntity(kind civicache.Kind, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: %s <id>", ErrUsage, kind)
	}

	var (
		v        any
		presence civicache.Presence
	)

	if kind == civicache.KindReport {
		v, presence = sh.e.cache.Report(args[0])
	} else {
		v, presence = sh.e.cache.Comment(args[0])
	}

	if presence != civicache.Present {
		sh.o.Printf("%s:%s %s\n", kind, args[0], presence)

		return nil
	}

	return writeJSON(sh.o.Out(), v)
}

func (sh *shell) lists() {
	keys := slices.Concat(sh.e.cache.TrackedLists(civicache.KindReport), sh.e.cache.TrackedLists(civicache.KindComment))
	if len(keys) == 0 {
		sh.o.Println("(no lists)")

		return
	}

	for _, key := range keys {
		ids, _ := sh.e.cache.List(key)
		sh.o.Printf("%s [%s]\n", key, strings.Join(ids, " "))
	}
}

func (sh *shell) pending() {
	keys := sh.e.cache.Pending()
	if len(keys) == 0 {
		sh.o.Println("(none pending)")

		return
	}

	for _, key := range keys {
		state, _ := sh.e.cache.PendingState(key.Kind, key.ID)
		sh.o.Printf("%s %s\n", key, state)
	}
}

func (sh *shell) stats() {
	s, presence := sh.e.cache.Stats()
	if presence != civicache.Present {
		sh.o.Println("stats", presence)

		return
	}

	sh.o.Printf("total=%d resolved=%d users=%d\n", s.TotalReports, s.ResolvedReports, s.TotalUsers)

	cats := make([]string, 0, len(s.ByCategory))
	for cat := range s.ByCategory {
		cats = append(cats, cat)
	}

	slices.Sort(cats)

	for _, cat := range cats {
		sh.o.Printf("  %s=%d\n", cat, s.ByCategory[cat])
	}
}

func (sh *shell) advance(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: advance <duration>", ErrUsage)
	}

	d, err := time.ParseDuration(args[0])
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}

	sh.e.clock.Advance(d)
	sh.log.Debug("advanced virtual time", zap.Duration("by", d), zap.Time("now", sh.e.clock.Now()))
	sh.o.Println("now", sh.e.clock.Now().Format(time.RFC3339))

	return nil
}

// completeShell completes command names, and op names inside an event.
func completeShell(line string) []string {
	var completions []string

	if prefix, ok := strings.CutPrefix(line, `{"op":"`); ok {
		for _, op := range replay.Ops() {
			if strings.HasPrefix(op, prefix) {
				completions = append(completions, `{"op":"`+op+`"`)
			}
		}

		return completions
	}

	lower := strings.ToLower(line)

	for _, cmd := range shellCommands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}
