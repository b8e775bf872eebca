package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/civicache/internal/config"
)

// Run is the main entry point. Returns exit code.
//
// sigCh may be nil. The first signal received cancels the running command.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globalFlags := flag.NewFlagSet("civicache", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.SetOutput(&strings.Builder{})

	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")
	flagCwd := globalFlags.StringP("cwd", "C", "", "Run as if started in `dir`")
	flagConfig := globalFlags.StringP("config", "c", "", "Use specified config `file`")
	flagLogLevel := globalFlags.String("log-level", "", "Override log `level` (debug, info, warn, error)")

	var cfg config.Config

	a := &app{cfg: &cfg}
	commands := allCommands(a)

	if len(args) == 0 {
		args = []string{"civicache"}
	}

	err := globalFlags.Parse(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, globalFlags, commands)

		return 1
	}

	rest := globalFlags.Args()

	if *flagHelp || len(rest) == 0 {
		printUsage(out, globalFlags, commands)

		return 0
	}

	cfg, err = config.Load(config.LoadInput{
		WorkDirOverride:  *flagCwd,
		ConfigPath:       *flagConfig,
		LogLevelOverride: *flagLogLevel,
		Env:              env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	a.log = newLogger(cfg.Level(), errOut)
	defer func() { _ = a.log.Sync() }()

	name := rest[0]

	var cmd *Command

	for _, c := range commands {
		if c.Name() == name {
			cmd = c

			break
		}
	}

	if cmd == nil {
		fprintln(errOut, "error: unknown command:", name)
		fprintln(errOut)
		printUsage(errOut, globalFlags, commands)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return cmd.Run(ctx, NewIO(in, out, errOut), rest[1:])
}

func allCommands(a *app) []*Command {
	return []*Command{
		ReplayCmd(a),
		DumpCmd(a),
		ShellCmd(a),
		MatchCmd(),
		PrintConfigCmd(a.cfg),
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globalFlags *flag.FlagSet, commands []*Command) {
	fprintln(w, `civicache - normalized cache and optimistic sync engine for civic reports

Usage: civicache [global flags] <command> [args]

Global flags:`)

	var buf strings.Builder
	globalFlags.SetOutput(&buf)
	globalFlags.PrintDefaults()
	globalFlags.SetOutput(&strings.Builder{})
	_, _ = io.WriteString(w, buf.String())

	fprintln(w)
	fprintln(w, "Commands:")

	for _, c := range commands {
		fprintln(w, c.HelpLine())
	}

	fprintln(w)
	fprintln(w, `Run "civicache <command> --help" for command details.`)
}
