// Package logging builds the process logger and helpers that keep
// credentials and email addresses out of log output.
package logging

import (
	"encoding/hex"
	"io"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/crypto/blake2b"
)

// Supported log formats.
const (
	FormatJSON   = "json"
	FormatText   = "text"
	FormatPretty = "pretty"
)

// Options configures the logger.
type Options struct {
	Level  string
	Format string
	Output io.Writer
	// Sink, when set, receives a copy of every record at or above Level.
	Sink Poster
}

// New builds a slog logger for the given options and installs it as the default.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	level := ParseLevel(opts.Level)

	var h slog.Handler
	switch opts.Format {
	case FormatPretty:
		h = tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	case FormatText:
		h = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	default:
		h = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	}

	if opts.Sink != nil {
		h = fanout{h, NewFluentHandler(opts.Sink, level)}
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// ParseLevel converts string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EmailFingerprint returns a short stable hash of an email address.
// The address is trimmed and lowercased first so the same mailbox maps to
// the same fingerprint regardless of input casing.
func EmailFingerprint(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:8])
}

// Email returns a log attribute carrying the fingerprint of an address.
func Email(email string) slog.Attr {
	return slog.String("email_fp", EmailFingerprint(email))
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

// RedactURL strips the password from a connection URL.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

// SanitizeError renders err with every secret replaced by its redacted form.
func SanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := RedactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
