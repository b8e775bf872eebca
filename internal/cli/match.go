package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/civicache/pkg/civicache"
)

// MatchCmd returns the match command.
func MatchCmd() *Command {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	filter := fs.StringP("filter", "f", "", "List `filter`: \"all\", \"north,south,east,west\", or a query string")

	return &Command{
		Flags: fs,
		Usage: "match --filter <filter> <report-json>",
		Short: "Check whether a report belongs to a filtered list",
		Long: `Evaluate the client-side list filter against one report.

Query-string filters accept d (discriminator), category, status, zone,
near=lat,lng with radius (meters), and q (search term), e.g.
  civicache match -f 'd=all&status=pendiente' '{"id":"r-1","status":"pendiente"}'`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execMatch(o, *filter, args)
		},
	}
}

func execMatch(o *IO, rawFilter string, args []string) error {
	if rawFilter == "" {
		return ErrFilterRequired
	}

	if len(args) == 0 {
		return ErrReportRequired
	}

	if len(args) > 1 {
		return fmt.Errorf("%w: expected one report", ErrTooManyArgs)
	}

	f, err := civicache.ParseFilter(rawFilter)
	if err != nil {
		return err
	}

	r, err := civicache.DecodeReport([]byte(args[0]))
	if err != nil {
		return err
	}

	if civicache.Matches(r, f) {
		o.Println("match")
	} else {
		o.Println("no match")
	}

	if f.RadiusMeters > 0 {
		o.Printf("distance=%.1fm radius=%.1fm\n",
			civicache.Distance(r.Lat, r.Lng, f.Center.Lat, f.Center.Lng), f.RadiusMeters)
	}

	return nil
}
