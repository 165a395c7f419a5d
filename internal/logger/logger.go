package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a component-scoped zerolog logger. Every message is prefixed
// with the component name so interleaved crawl workers stay readable.
type Logger struct {
	*zerolog.Logger
	component string
}

var levels = map[string]zerolog.Level{
	"development": zerolog.DebugLevel,
	"test":        zerolog.WarnLevel,
	"staging":     zerolog.InfoLevel,
	"production":  zerolog.InfoLevel,
}

// Config controls where and how a component logs.
type Config struct {
	AppEnv string
	Output io.Writer
}

// New creates a logger for a component using APP_ENV from the environment.
func New(component string) *Logger {
	return NewWithConfig(component, Config{AppEnv: os.Getenv("APP_ENV")})
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	l := zerolog.Nop()
	return &Logger{Logger: &l, component: "nop"}
}

// NewWithConfig creates a logger for a component with explicit settings.
func NewWithConfig(component string, cfg Config) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	production := cfg.AppEnv == "production"

	console := zerolog.ConsoleWriter{
		Out: out,
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("[%s] %s", component, i)
		},
		FormatLevel: func(i interface{}) string {
			level, ok := i.(string)
			if !ok {
				return "???"
			}
			switch level {
			case "debug":
				return "\033[36m[DEBUG]\033[0m"
			case "info":
				return "\033[34m[INFO]\033[0m"
			case "warn":
				return "\033[33m[WARN]\033[0m"
			case "error":
				return "\033[31m[ERROR]\033[0m"
			case "fatal":
				return "\033[35m[FATAL]\033[0m"
			default:
				return fmt.Sprintf("[%s]", level)
			}
		},
	}

	var zl zerolog.Logger
	if production {
		console.TimeFormat = ""
		zl = zerolog.New(console).Level(levelFor(cfg.AppEnv))
	} else {
		console.TimeFormat = "2006-01-02 15:04:05"
		zl = zerolog.New(console).Level(levelFor(cfg.AppEnv)).With().Timestamp().Logger()
	}
	return &Logger{Logger: &zl, component: component}
}

func levelFor(env string) zerolog.Level {
	if level, ok := levels[env]; ok {
		return level
	}
	return zerolog.DebugLevel
}

// With returns a child logger carrying a string field, e.g. the job ID.
func (l *Logger) With(key, value string) *Logger {
	child := l.Logger.With().Str(key, value).Logger()
	return &Logger{Logger: &child, component: l.component}
}

// Success logs at info level with a success marker.
func (l *Logger) Success() *zerolog.Event { return l.Logger.Info().Str("level", "success") }

func (l *Logger) LogDebugf(format string, v ...interface{}) { l.Debug().Msgf(format, v...) }
func (l *Logger) LogInfof(format string, v ...interface{})  { l.Info().Msgf(format, v...) }
func (l *Logger) LogWarnf(format string, v ...interface{})  { l.Warn().Msgf(format, v...) }
func (l *Logger) LogErrorf(format string, v ...interface{}) { l.Error().Msgf(format, v...) }
func (l *Logger) LogFatalf(format string, v ...interface{}) { l.Fatal().Msgf(format, v...) }

func (l *Logger) LogSuccessf(format string, v ...interface{}) {
	l.Success().Msgf(format, v...)
}

func (l *Logger) LogInfo(msg string) { l.Info().Msg(msg) }

func (l *Logger) LogError(msg string, err error) {
	if err != nil {
		l.Error().Err(err).Msg(msg)
		return
	}
	l.Error().Msg(msg)
}
