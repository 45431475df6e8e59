// Package logging provides the module's shared structured logger; its
// only caller outside tests is cmd/n3node. It mirrors the teacher's
// per-subsystem logger seam (core/wallet.go's SetWalletLogger,
// core/security.go's SetSecurityLogger): a package-level *logrus.Logger
// that production code logs through directly and tests can redirect via
// SetLogger.
package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// logger is the process-wide structured logger. Callers reach it through
// the package functions below rather than holding their own reference, so
// SetLogger can redirect every subsystem at once (e.g. to a buffer in tests,
// or to io.Discard for benchmarks).
var logger = newDefault()

func newDefault() *log.Logger {
	l := log.New()
	l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	l.SetOutput(os.Stderr)
	l.SetLevel(log.InfoLevel)
	return l
}

// SetLogger replaces the process-wide logger. Passing nil restores the
// default stderr logger.
func SetLogger(l *log.Logger) {
	if l == nil {
		logger = newDefault()
		return
	}
	logger = l
}

// Logger returns the current process-wide logger.
func Logger() *log.Logger { return logger }

// SetLevel parses level ("debug", "info", "warn", "error", ...) and applies
// it to the current logger. An unparseable level is ignored.
func SetLevel(level string) {
	lv, err := log.ParseLevel(level)
	if err != nil {
		return
	}
	logger.SetLevel(lv)
}

// SetOutput redirects the current logger's output, e.g. to a file opened by
// cmd/n3node or to io.Discard in quiet test runs.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// WithFields is a convenience wrapper over logger.WithFields, matching the
// teacher's structured-field idiom (log.WithFields{...}.Info(...)).
func WithFields(fields log.Fields) *log.Entry {
	return logger.WithFields(fields)
}

// Component returns an entry pre-tagged with the calling subsystem's name,
// e.g. logging.Component("ledger").Info("genesis bootstrapped").
func Component(name string) *log.Entry {
	return logger.WithField("component", name)
}
