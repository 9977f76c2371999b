package logging

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// timeEncoder formats timestamps with the configured prefix and layout.
func timeEncoder(config Config) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(config.Prefix + t.Format(config.TimeFormat))
	}
}

// NewEncoder returns a zapcore.Encoder based on the config format.
func NewEncoder(config Config) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    config.ZapEncodeLevel(),
		EncodeTime:     timeEncoder(config),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	if config.Format == "json" {
		return zapcore.NewJSONEncoder(ec)
	}
	return zapcore.NewConsoleEncoder(ec)
}

// buildCores creates one core per level at or above config.Level. Each level
// gets its own rotated file so errors can be tailed separately.
func buildCores(config Config) []zapcore.Core {
	encoder := NewEncoder(config)
	minLevel := config.ZapLevel()

	if !config.LogInFile {
		if !config.LogInTerminal {
			return []zapcore.Core{zapcore.NewNopCore()}
		}
		return []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), minLevel)}
	}

	cores := make([]zapcore.Core, 0, int(zapcore.FatalLevel-minLevel)+1)
	for level := minLevel; level <= zapcore.FatalLevel; level++ {
		cores = append(cores, zapcore.NewCore(encoder, writeSyncerFor(config, level.String()), exactLevel(level)))
	}
	return cores
}

func exactLevel(level zapcore.Level) zap.LevelEnablerFunc {
	return func(l zapcore.Level) bool {
		return l == level
	}
}
