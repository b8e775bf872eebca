package cli

import (
	"context"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/civicache/internal/replay"
	"github.com/calvinalkan/civicache/pkg/civicache"
)

// ReplayCmd returns the replay command.
func ReplayCmd(a *app) *Command {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Print the final snapshot as JSON instead of a summary")
	metrics := fs.Bool("metrics", false, "Print engine metrics after the summary")

	return &Command{
		Flags: fs,
		Usage: "replay [flags] <script>",
		Short: "Apply a JSONL event script and show the result",
		Long: `Apply a JSONL event script to a fresh cache and show the resulting state.

Each line is one event, for example:
  {"op":"set_report_list","query":"all","filter":"all","reports":[{"id":"r-1"}]}
  {"op":"create_pending_comment","bind":"c","comment":{"report_id":"r-1"}}
  {"op":"confirm","kind":"comment","id":"$c","server_id":"c-9"}
  {"op":"advance","by":"1s"}

Use - to read the script from stdin. Entities still pending at the end
are reported as a warning.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execReplay(ctx, a, o, args, *asJSON, *metrics)
		},
	}
}

func execReplay(ctx context.Context, a *app, o *IO, args []string, asJSON, metrics bool) error {
	e, err := replayScript(ctx, a, o, args)
	if err != nil {
		return err
	}
	defer e.Close()

	snap := e.cache.Snapshot()

	if asJSON {
		err = writeJSON(o.Out(), snap)
		if err != nil {
			return err
		}
	} else {
		printSummary(o, snap)
	}

	if metrics {
		o.Println()

		err = writeMetrics(o.Out(), e.reg)
		if err != nil {
			return err
		}
	}

	warnPending(o, snap)

	return nil
}

// replayScript builds a fresh engine and runs the script named by args on it.
func replayScript(ctx context.Context, a *app, o *IO, args []string) (*engine, error) {
	if len(args) == 0 {
		return nil, ErrScriptRequired
	}

	if len(args) > 1 {
		return nil, fmt.Errorf("%w: %s", ErrTooManyArgs, strings.Join(args[1:], " "))
	}

	path := args[0]
	if path != "-" {
		path = resolvePath(a.cfg.EffectiveCwd, path)
	}

	f, err := openScript(path, o.in)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	events, err := replay.Decode(f)
	if err != nil {
		return nil, err
	}

	e, err := a.newEngine()
	if err != nil {
		return nil, err
	}

	err = e.player.Run(ctx, events)
	if err != nil {
		e.Close()

		return nil, err
	}

	return e, nil
}

func printSummary(o *IO, snap civicache.Snapshot) {
	o.Printf("reports=%d comments=%d lists=%d tombstones=%d pending=%d\n",
		len(snap.Reports), len(snap.Comments), len(snap.Lists), len(snap.Tombstones), len(snap.Pending))

	for _, l := range snap.Lists {
		o.Printf("%s [%s]\n", l.Key, strings.Join(l.IDs, " "))
	}

	if snap.Stats != nil {
		o.Printf("stats total=%d resolved=%d users=%d\n",
			snap.Stats.TotalReports, snap.Stats.ResolvedReports, snap.Stats.TotalUsers)
	}

	for _, key := range snap.Pending {
		o.Println("pending", key)
	}
}

func warnPending(o *IO, snap civicache.Snapshot) {
	if len(snap.Pending) == 0 {
		return
	}

	o.Warn(fmt.Sprintf("%d optimistic entities still pending", len(snap.Pending)),
		"confirm or fail them in the script")
}
