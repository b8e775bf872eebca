package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"
)

const snapshotPerms = 0o644

// DumpCmd returns the dump command.
func DumpCmd(a *app) *Command {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	out := fs.StringP("out", "o", "", "Write the snapshot to `file` instead of stdout")

	return &Command{
		Flags: fs,
		Usage: "dump [--out file] <script>",
		Short: "Replay a script and write the JSON snapshot",
		Long: `Replay a script and write the cache snapshot as JSON.

With --out the file is replaced atomically, so a reader never sees a
partial snapshot. The snapshot is diagnostic output; nothing reads it back.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execDump(ctx, a, o, args, *out)
		},
	}
}

func execDump(ctx context.Context, a *app, o *IO, args []string, out string) error {
	e, err := replayScript(ctx, a, o, args)
	if err != nil {
		return err
	}
	defer e.Close()

	snap := e.cache.Snapshot()

	if out == "" {
		err = writeJSON(o.Out(), snap)
		if err != nil {
			return err
		}

		warnPending(o, snap)

		return nil
	}

	var buf bytes.Buffer

	err = writeJSON(&buf, snap)
	if err != nil {
		return err
	}

	path := resolvePath(a.cfg.EffectiveCwd, out)

	err = atomic.WriteFile(path, &buf)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	// atomic.WriteFile leaves new files at 0600
	err = os.Chmod(path, snapshotPerms)
	if err != nil {
		return fmt.Errorf("chmod snapshot: %w", err)
	}

	o.Println("wrote", path)
	warnPending(o, snap)

	return nil
}
