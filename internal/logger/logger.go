package logger

import (
	"context"
	"github.com/maxaizer/jobboard-alerts/internal/config"
	"github.com/maxaizer/jobboard-alerts/pkg/loki"
	log "github.com/sirupsen/logrus"
	"io"
	"os"
	"path/filepath"
)

const ErrorTypeField = "error_type"

const (
	ErrorTypeDb          = "db"
	ErrorTypeStore       = "store"
	ErrorTypeJobBoardApi = "jobboard_api"
	ErrorTypeTgApi       = "tg_api"
)

var logFile *os.File

func Setup(ctx context.Context, cfg config.LoggerConfig) {

	if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	var err error
	logFile, err = os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multiWriter)

	customFormatter := &log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000 -0700",
	}
	log.SetFormatter(customFormatter)
	SetLevel(cfg.LogLevel)

	addPrometheusHook()

	if cfg.LokiURL == "" {
		return
	}

	lokiCfg := loki.Config{
		Url:      cfg.LokiURL,
		Username: cfg.LokiUser,
		Password: cfg.LokiPassword,
		Labels:   map[string]string{"app": cfg.AppName},
	}
	if err = addLokiHook(ctx, lokiCfg, log.GetLevel()); err != nil {
		log.Errorf("failed to enable loki logging: %v", err)
	}
}

var levels = map[config.LogLevel]log.Level{
	config.LevelDebug:   log.DebugLevel,
	config.LevelInfo:    log.InfoLevel,
	config.LevelWarning: log.WarnLevel,
	config.LevelError:   log.ErrorLevel,
	config.LevelFatal:   log.FatalLevel,
}

// SetLevel applies a configured level; unknown levels fall back to INFO.
func SetLevel(level config.LogLevel) {
	parsed, ok := levels[level]
	if !ok {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

func Cleanup() {
	stopLoki()
	if logFile != nil {
		_ = logFile.Close()
	}
}
