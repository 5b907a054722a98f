package ui

import (
	"bytes"
	"os"
	"regexp"
	"strings"
	"testing"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{"NO_COLOR wins", map[string]string{"NO_COLOR": "1", "CLICOLOR_FORCE": "1"}, false},
		{"CLICOLOR_FORCE", map[string]string{"CLICOLOR_FORCE": "1"}, true},
		{"CLICOLOR=0", map[string]string{"CLICOLOR": "0"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"NO_COLOR", "CLICOLOR_FORCE", "CLICOLOR"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := ShouldUseColor(os.Stdout); got != tt.want {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"Malmö Stockholm", 8, "Malmö..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestWriteTable(t *testing.T) {
	ForceNoColor()

	var buf bytes.Buffer
	err := WriteTable(&buf, []string{"ID", "NAME"}, [][]string{
		{"1", "Ann"},
		{"100", "Bartholomew"},
		{"7"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"ID   NAME",
		"1    Ann",
		"100  Bartholomew",
		"7",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("table:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteTable_ColorDoesNotSkewPadding(t *testing.T) {
	ForceColor()
	defer ForceNoColor()

	var buf bytes.Buffer
	if err := WriteTable(&buf, []string{"A", "B"}, [][]string{{"xyz", "1"}}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(buf.String(), "\n")
	if !strings.Contains(lines[0], "\x1b[") {
		t.Fatalf("header not colored: %q", lines[0])
	}
	if lines[1] != "xyz  1" {
		t.Errorf("row = %q", lines[1])
	}
	if got := ansiEscape.ReplaceAllString(lines[0], ""); got != "A    B" {
		t.Errorf("header padding = %q (raw %q)", got, lines[0])
	}
}
