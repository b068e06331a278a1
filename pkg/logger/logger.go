// Package logger configura zerolog para el servicio: consola legible en development, JSON en el resto,
// con los campos service y env en cada línea.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config opciones para el logger.
type Config struct {
	Service string    // valor del campo service; vacío = se omite
	Env     string    // development -> consola legible; el resto -> JSON
	Level   string    // trace, debug, info, warn, error
	Output  io.Writer // nil = stdout
}

// Logger sublogger raíz del proceso. Los componentes (motor, caché, casos de uso) reciben uno propio
// vía Component; las peticiones HTTP llevan el suyo en el context.Context.
type Logger struct {
	zl zerolog.Logger
}

// New crea el logger raíz y lo deja también como logger global de zerolog.
func New(cfg Config) *Logger {
	w := cfg.Output
	if w == nil {
		w = os.Stdout
	}
	if cfg.Env == "development" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	zctx := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.Service != "" {
		zctx = zctx.Str("service", cfg.Service)
	}
	if cfg.Env != "" {
		zctx = zctx.Str("env", cfg.Env)
	}
	zl := zctx.Logger()
	log.Logger = zl

	return &Logger{zl: zl}
}

// ParseLevel traduce LOG_LEVEL; valores desconocidos o vacíos = info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// Zerolog devuelve el logger interno (lo usa el middleware HTTP como base por petición).
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

// Component sublogger con el campo component, para inyectar en el motor y adaptadores.
func (l *Logger) Component(name string) *zerolog.Logger {
	zl := l.zl.With().Str("component", name).Logger()
	return &zl
}

// FromContext devuelve el logger de la petición si el contexto trae uno activo; si no, fallback.
// fallback nil = logger deshabilitado.
func FromContext(ctx context.Context, fallback *zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	if fallback == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return fallback
}
