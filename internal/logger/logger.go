// Package logger builds the zap logger used by the chtable driver.
package logger

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console encoded logger writing to path ("stdout" and "stderr" are accepted too).
// Timestamps are microseconds since the Unix epoch so that lines from concurrent workers can be ordered.
func New(level, path string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = epochMicrosTimeEncoder
	encoderConfig.EncodeCaller = nil
	encoderConfig.CallerKey = ""

	cfg := zap.Config{
		Level:             lvl,
		Encoding:          "console",
		EncoderConfig:     encoderConfig,
		OutputPaths:       []string{path},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}

	return cfg.Build()
}

func epochMicrosTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendInt64(t.UnixMicro())
}
