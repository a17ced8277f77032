package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ZapLoggerConfig struct {
	IsDevelopment     bool
	Encoding          string
	Level             string
	DisableCaller     bool
	DisableStacktrace bool
}

// NewZapLogger builds the process logger and installs it as zap's global logger.
func NewZapLogger(cfg *ZapLoggerConfig) *zap.Logger {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	var zcfg zap.Config
	if cfg.IsDevelopment {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if cfg.Encoding != "" {
		zcfg.Encoding = cfg.Encoding
	}
	zcfg.Level = level
	zcfg.DisableCaller = cfg.DisableCaller
	zcfg.DisableStacktrace = cfg.DisableStacktrace

	l, err := zcfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	zap.ReplaceGlobals(l)
	return l
}

// ForEnv returns the config used by the service for the given APP_ENV and LOG_LEVEL.
func ForEnv(development bool, level string) *ZapLoggerConfig {
	if development {
		return &ZapLoggerConfig{IsDevelopment: true, Encoding: "console", Level: "debug"}
	}
	if level == "" {
		level = "info"
	}
	return &ZapLoggerConfig{Encoding: "json", Level: level}
}
