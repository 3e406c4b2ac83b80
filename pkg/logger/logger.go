package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Nombres de campo comunes a todos los componentes del POS.
const (
	FieldTenant  = "tenant_id"
	FieldOutlet  = "outlet_id"
	FieldSubject = "subject"
)

// Config opciones para el logger.
type Config struct {
	Env     string    // development -> consola legible; production -> JSON
	Level   string    // trace, debug, info, warn, error
	Service string    // se añade como campo "service" a cada línea
	Output  io.Writer // opcional; por defecto os.Stdout
}

// Logger envuelve zerolog para los binarios; los paquetes internos reciben zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

// New crea un logger estructurado. En development usa salida legible; en production JSON.
func New(cfg Config) *Logger {
	var w io.Writer = os.Stdout
	if cfg.Output != nil {
		w = cfg.Output
	}
	if cfg.Env == "development" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	zctx := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.Service != "" {
		zctx = zctx.Str("service", cfg.Service)
	}
	zl := zctx.Logger()

	// las librerías que usan el logger global escriben en el mismo destino
	log.Logger = zl

	return &Logger{Logger: zl}
}

// Nop logger silencioso para tests.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// ParseLevel traduce LOG_LEVEL; valores desconocidos caen en info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Component devuelve un sublogger con el campo "component" fijo.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// Zerolog devuelve el logger interno para inyectarlo en los casos de uso.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.Logger
}

// Scope fija tenant y local en un sublogger. outletID 0 omite el local.
func Scope(l zerolog.Logger, tenantID, outletID int64) zerolog.Logger {
	c := l.With().Int64(FieldTenant, tenantID)
	if outletID > 0 {
		c = c.Int64(FieldOutlet, outletID)
	}
	return c.Logger()
}
