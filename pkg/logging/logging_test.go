package logging

import (
	"bytes"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetLoggerRedirectsOutput(t *testing.T) {
	var buf bytes.Buffer
	l := log.New()
	l.SetOutput(&buf)
	l.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	SetLogger(l)
	defer SetLogger(nil)

	Component("ledger").Info("genesis bootstrapped")

	if !strings.Contains(buf.String(), "genesis bootstrapped") {
		t.Fatalf("expected redirected output to contain message, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "component=ledger") {
		t.Fatalf("expected component field in output, got %q", buf.String())
	}
}

func TestSetLevelParsesValidLevels(t *testing.T) {
	defer SetLogger(nil)
	SetLevel("warn")
	if Logger().GetLevel() != log.WarnLevel {
		t.Fatalf("expected warn level, got %v", Logger().GetLevel())
	}
	SetLevel("not-a-level")
	if Logger().GetLevel() != log.WarnLevel {
		t.Fatalf("unparseable level should be ignored, got %v", Logger().GetLevel())
	}
}

func TestSetLoggerNilRestoresDefault(t *testing.T) {
	var buf bytes.Buffer
	l := log.New()
	l.SetOutput(&buf)
	SetLogger(l)

	SetLogger(nil)
	if Logger() == l {
		t.Fatalf("expected SetLogger(nil) to install a fresh default logger")
	}
}
