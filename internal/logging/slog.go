package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// SlogManager manages slog-based logging with optional OTel and Graylog
// outputs.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	// Dynamic state callbacks; records pick these up via the context
	// handler when set.
	GetRunName   func() string
	GetTickCount func() uint
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system with console output plus optional
// file, OTel, and Graylog outputs. Nil file and provider disable those
// outputs; empty graylogAddr disables GELF.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, graylogAddr string) {
	lvl := parseLevel(level)
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	handlers = append(handlers, slog.NewTextHandler(os.Stdout, handlerOpts))

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	}

	if provider != nil {
		otelHandler := otelslog.NewHandler("drivesim", otelslog.WithLoggerProvider(provider))
		handlers = append(handlers, otelHandler)
	}

	if graylogAddr != "" {
		if gelfWriter, err := gelf.NewWriter(graylogAddr); err == nil {
			handlers = append(handlers, slog.NewJSONHandler(gelfWriter, handlerOpts))
		}
	}

	multiHandler := NewMultiHandler(handlers...)

	// Inject run name and tick into every record once the callbacks are
	// wired by the runtime.
	contextHandler := NewContextHandler(multiHandler, func() []slog.Attr {
		var attrs []slog.Attr
		if m.GetRunName != nil {
			if name := m.GetRunName(); name != "" {
				attrs = append(attrs, slog.String("run", name))
			}
		}
		if m.GetTickCount != nil {
			if n := m.GetTickCount(); n > 0 {
				attrs = append(attrs, slog.Uint64("tick", uint64(n)))
			}
		}
		return attrs
	})

	m.logger = slog.New(contextHandler)
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// WriteLog writes a log entry with the specified function name, data, and
// level.
func (m *SlogManager) WriteLog(functionName, data, level string) {
	if m.logger == nil {
		return
	}

	switch parseLevel(level) {
	case slog.LevelDebug:
		m.logger.Debug(data, "function", functionName)
	case slog.LevelWarn:
		m.logger.Warn(data, "function", functionName)
	case slog.LevelError:
		m.logger.Error(data, "function", functionName)
	default:
		m.logger.Info(data, "function", functionName)
	}
}
