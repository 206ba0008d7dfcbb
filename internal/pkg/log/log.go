package log

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var commitID string

func Environment(environment string) zap.Field {
	return zap.String("environment", environment)
}

func Project(name string) zap.Field {
	return zap.String("project", name)
}

func Peer(name string) zap.Field {
	return zap.String("peer", name)
}

// NewLogger builds the JSON logger. stdout is reserved for the template, so
// logPath defaults to stderr.
func NewLogger(logPath string, level string) (*zap.SugaredLogger, error) {
	if logPath == "" {
		logPath = "stderr"
	}

	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("zap.ParseAtomicLevel(%s): %w", level, err)
	}

	zapConfig := zap.Config{
		Level:       atomicLevel,
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.999999Z07:00"),
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	}

	l, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("zapConfig.Build: %w", err)
	}
	return l.Sugar().With(
		zap.String("commit_id", commitID),
		zap.String("run_id", uuid.NewString()),
	), nil
}
