package testutil

import (
	"strings"
	"testing"
)

// Caret marks a position in test query text.
const Caret = "<caret>"

// SplitCaret removes the single caret marker from sql and returns the text
// and the byte offset the marker stood at.
func SplitCaret(t testing.TB, sql string) (string, int) {
	t.Helper()
	offset := strings.Index(sql, Caret)
	if offset < 0 {
		t.Fatalf("no %s marker in %q", Caret, sql)
	}
	if strings.Count(sql, Caret) > 1 {
		t.Fatalf("more than one %s marker in %q", Caret, sql)
	}
	return sql[:offset] + sql[offset+len(Caret):], offset
}
