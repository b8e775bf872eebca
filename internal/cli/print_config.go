package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/civicache/internal/config"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(cfg *config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execPrintConfig(io, cfg)
		},
	}
}

func execPrintConfig(io *IO, cfg *config.Config) error {
	io.Println("effective_cwd=" + cfg.EffectiveCwd)
	io.Println("grace_window=" + cfg.GraceWindow.String())
	io.Println("pending_ttl=" + cfg.PendingTTL.String())
	io.Println("resolved_status=" + cfg.ResolvedStatus)
	io.Println("temp_id_prefix=" + cfg.TempIDPrefix)
	io.Println("log_level=" + cfg.LogLevel)
	io.Println("history_file=" + cfg.HistoryFileAbs)

	io.Println("")
	io.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		io.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			io.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			io.Println("project_config=" + cfg.Sources.Project)
		}
	}

	return nil
}
