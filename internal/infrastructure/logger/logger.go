package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config describes where and how the service logs
type Config struct {
	Level   string // debug, info, warn, error
	Format  string // json or console
	Output  string // stdout, stderr or a file path
	Service string // attached to every entry when set
	// TimeFormat is a time layout, ISO 8601 with millis when empty
	TimeFormat string
}

// New builds a zap logger. Extra cores receive every entry as well, which is
// how the OpenTelemetry log bridge is attached.
func New(cfg Config, extra ...zapcore.Core) (*zap.Logger, error) {
	output := cfg.Output
	if output == "" {
		output = "stdout"
	}
	sink, _, err := zap.Open(output)
	if err != nil {
		return nil, fmt.Errorf("open log output %q: %w", output, err)
	}

	var core zapcore.Core = zapcore.NewCore(newEncoder(cfg), sink, ParseLevel(cfg.Level))
	if len(extra) > 0 {
		core = zapcore.NewTee(append([]zapcore.Core{core}, extra...)...)
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Service != "" {
		opts = append(opts, zap.Fields(zap.String("service", cfg.Service)))
	}
	return zap.New(core, opts...), nil
}

// ParseLevel reads a level name case-insensitively. Unknown names mean info.
func ParseLevel(level string) zapcore.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return parsed
}

func newEncoder(cfg Config) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.TimeFormat != "" {
		ec.EncodeTime = zapcore.TimeEncoderOfLayout(cfg.TimeFormat)
	}

	if strings.EqualFold(cfg.Format, "console") {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}
