package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/calvinalkan/civicache/internal/config"
	"github.com/calvinalkan/civicache/internal/replay"
	"github.com/calvinalkan/civicache/internal/vclock"
	"github.com/calvinalkan/civicache/pkg/civicache"
)

// app carries what commands share. cfg is filled in by Run before any
// command executes.
type app struct {
	cfg *config.Config
	log *zap.Logger
}

// engine is one cache on a virtual clock, with its own metrics registry.
type engine struct {
	cache  *civicache.Cache
	clock  *vclock.Clock
	reg    *prometheus.Registry
	player *replay.Player
}

func (a *app) newEngine() (*engine, error) {
	clock := vclock.NewClock()
	reg := prometheus.NewRegistry()

	opts := a.cfg.CacheOptions()
	opts.Logger = a.log
	opts.Registerer = reg
	opts.Clock = clock

	c, err := civicache.New(opts)
	if err != nil {
		return nil, err
	}

	return &engine{
		cache:  c,
		clock:  clock,
		reg:    reg,
		player: replay.NewPlayer(c, clock, a.log),
	}, nil
}

func (e *engine) Close() {
	e.cache.Close()
}

// newLogger writes human-readable logs to w. Timestamps are omitted; the
// engine runs on virtual time.
func newLogger(level zapcore.Level, w io.Writer) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)

	return zap.New(core)
}

// openScript opens path, or returns in for "-".
func openScript(path string, in io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		if in == nil {
			return nil, ErrNoInput
		}

		return io.NopCloser(in), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}

	return f, nil
}

func resolvePath(workDir, path string) string {
	if filepath.IsAbs(path) || workDir == "" {
		return path
	}

	return filepath.Join(workDir, path)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func writeMetrics(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	for _, mf := range families {
		_, err = expfmt.MetricFamilyToText(w, mf)
		if err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	return nil
}
