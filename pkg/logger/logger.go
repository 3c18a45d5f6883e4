// Package logger provides the structured logging wrapper the scheduling
// core and its HTTP surface log through.
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level re-exports zerolog's level type so callers don't import it
// directly.
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config configures the process-wide logger.
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init sets up the global logger. Safe to call more than once; only the
// first call takes effect.
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the global logger, initializing it with defaults if no
// caller has called Init yet.
func Get() *zerolog.Logger {
	Init(DefaultConfig()) // no-op once Init has run
	return &logger
}

// WithContext attaches a request id carried on ctx, if any.
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	if reqID, ok := ctx.Value("request_id").(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}

	return &l
}

func Debug() *zerolog.Event { return Get().Debug() }
func Info() *zerolog.Event  { return Get().Info() }
func Warn() *zerolog.Event  { return Get().Warn() }
func Error() *zerolog.Event { return Get().Error() }
func Fatal() *zerolog.Event { return Get().Fatal() }

func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

func WithFields(fields map[string]interface{}) *zerolog.Logger {
	ctx := Get().With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	l := ctx.Logger()
	return &l
}

// SchedulerLogger logs the domain events of one schedule-generation call.
type SchedulerLogger struct {
	base *zerolog.Logger
}

// NewSchedulerLogger builds a logger scoped to the scheduler component.
func NewSchedulerLogger() *SchedulerLogger {
	l := Get().With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// SolveStarted logs the start of one build_solution attempt.
func (l *SchedulerLogger) SolveStarted(agents, days int) {
	l.base.Info().
		Int("agents", agents).
		Int("days", days).
		Msg("solve started")
}

// ConstraintViolation logs a single constraint rejection encountered
// during constructive fill or local search.
func (l *SchedulerLogger) ConstraintViolation(constraintName, details string) {
	l.base.Debug().
		Str("constraint", constraintName).
		Str("details", details).
		Msg("constraint violation")
}

// ReinforcementInjected logs the synthesis of one reinforcement agent
// during the §4.6 retry loop.
func (l *SchedulerLogger) ReinforcementInjected(agentID string, regime string, attempt int) {
	l.base.Warn().
		Str("agent_id", agentID).
		Str("regime", regime).
		Int("attempt", attempt).
		Msg("reinforcement agent injected")
}

// SolveFeasible logs a successful solve and its final score.
func (l *SchedulerLogger) SolveFeasible(score float64) {
	l.base.Info().
		Float64("score", score).
		Msg("solve feasible")
}

// SolveInfeasible logs that no feasible schedule was found, even after
// exhausting the reinforcement budget.
func (l *SchedulerLogger) SolveInfeasible(reason string) {
	l.base.Error().
		Str("reason", reason).
		Msg("solve infeasible")
}
