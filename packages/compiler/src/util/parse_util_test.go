package util

import (
	"strings"
	"testing"
)

func TestParseLocationString(t *testing.T) {
	file := NewParseSourceFile("width: 10px;", "app.slint")
	loc := NewParseLocation(file, 7, 1, 8)
	if got := loc.String(); got != "app.slint@1:8" {
		t.Errorf("String() = %q", got)
	}
	if got := NewParseLocation(file, -1, -1, -1).String(); got != "app.slint" {
		t.Errorf("offset-less location String() = %q", got)
	}
}

func TestParseSourceSpanString(t *testing.T) {
	file := NewParseSourceFile("width: 10px;", "app.slint")
	s := NewParseSourceSpan(
		NewParseLocation(file, 7, 1, 8),
		NewParseLocation(file, 11, 1, 12),
		nil, nil,
	)
	if got := s.String(); got != "10px" {
		t.Errorf("span text = %q, want %q", got, "10px")
	}
}

func TestContextualMessageShowsSurroundingSource(t *testing.T) {
	file := NewParseSourceFile("width: self.width;", "app.slint")
	s := NewParseSourceSpan(
		NewParseLocation(file, 7, 1, 8),
		NewParseLocation(file, 17, 1, 18),
		nil, nil,
	)
	e := NewParseError(s, "binding loop")
	msg := e.ContextualMessage()
	if !strings.Contains(msg, "binding loop") || !strings.Contains(msg, "[ERROR ->]") {
		t.Errorf("ContextualMessage() = %q", msg)
	}
}

func TestSyntheticSpanHasNoOffsets(t *testing.T) {
	s := SyntheticSpan("two-way binding")
	if s.Start.Offset != -1 {
		t.Errorf("synthetic span has offset %d", s.Start.Offset)
	}
	if s.Start.File.URL != "two-way binding" {
		t.Errorf("description lost: %q", s.Start.File.URL)
	}
}

func TestJoinMessages(t *testing.T) {
	errs := []*ParseError{
		NewParseError(nil, "first"),
		NewParseWarning(nil, "second"),
	}
	if got := JoinMessages(errs); got != "first\nsecond" {
		t.Errorf("JoinMessages() = %q", got)
	}
}
