// Package i18n localizes operator-facing output. HTTP handlers pick
// the language from Accept-Language via the middleware, the CLI from
// the locale environment; both ends print through a message.Printer so
// the English format strings double as catalog keys.
package i18n

import (
	"context"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLang is the fallback when nothing matches.
var DefaultLang = language.English

// SupportedLangs lists the languages with catalog entries. English is
// the source language and stays first so the matcher falls back to it.
var SupportedLangs = []language.Tag{
	language.English,
	language.Spanish,
}

var matcher = language.NewMatcher(SupportedLangs)

func init() {
	// Spanish catalog for the provisioning messages. Strings without an
	// entry fall through to the English key.
	es := language.Spanish
	message.SetString(es, "Reload OK", "Recarga completada")
	message.SetString(es, "No backups", "No hay copias de seguridad")
	message.SetString(es, "Created backup %d (%d bytes): %s\n", "Copia de seguridad %d creada (%d bytes): %s\n")
	message.SetString(es, "Pinned backup %d\n", "Copia de seguridad %d fijada\n")
	message.SetString(es, "Unpinned backup %d\n", "Copia de seguridad %d liberada\n")
	message.SetString(es, "Restored backup %d\n", "Copia de seguridad %d restaurada\n")
	message.SetString(es, "Warning: reload failed: %s\n", "Aviso: la recarga ha fallado: %s\n")
	message.SetString(es, "No differences between backup %d and current\n", "Sin diferencias entre la copia %d y el archivo actual\n")
	message.SetString(es, "File OK: %d lines, %d sections, %d endpoints\n", "Archivo correcto: %d líneas, %d secciones, %d extensiones\n")
}

type contextKey struct{}

var printerKey = contextKey{}

// MatchLanguage resolves an Accept-Language header against the
// supported set.
func MatchLanguage(acceptLang string) language.Tag {
	tags, _, _ := language.ParseAcceptLanguage(acceptLang)
	tag, _, _ := matcher.Match(tags...)
	return tag
}

// NewPrinter returns a message printer for the given language.
func NewPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// WithPrinter stores a printer on the context.
func WithPrinter(ctx context.Context, p *message.Printer) context.Context {
	return context.WithValue(ctx, printerKey, p)
}

// GetPrinter returns the printer from the context, or one for
// DefaultLang when the middleware did not run.
func GetPrinter(ctx context.Context) *message.Printer {
	p, ok := ctx.Value(printerKey).(*message.Printer)
	if !ok {
		return message.NewPrinter(DefaultLang)
	}
	return p
}

// NewCLIPrinter returns a printer for the system locale. LC_ALL wins
// over LANG, matching the usual libc precedence; the encoding suffix
// ("es_ES.UTF-8") is not part of the language tag and is stripped.
func NewCLIPrinter() *message.Printer {
	lang := os.Getenv("LC_ALL")
	if lang == "" {
		lang = os.Getenv("LANG")
	}
	if lang == "" {
		return message.NewPrinter(DefaultLang)
	}
	if i := strings.Index(lang, "."); i != -1 {
		lang = lang[:i]
	}

	tag, err := language.Parse(lang)
	if err != nil {
		return message.NewPrinter(MatchLanguage(lang))
	}
	// Map a regional tag onto the supported base ("es-MX" -> "es").
	tag, _, _ = matcher.Match(tag)
	return message.NewPrinter(tag)
}
