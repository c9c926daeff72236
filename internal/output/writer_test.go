package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
)

func TestPrinter_JSON_Pretty(t *testing.T) {
	var stdout bytes.Buffer
	p := NewPrinter(&stdout, &bytes.Buffer{}, ModePretty, false)

	data := map[string]string{"key": "value"}
	if err := p.JSON(data); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	got := stdout.String()
	if !strings.Contains(got, "  ") {
		t.Error("pretty mode should contain indentation")
	}
	if !json.Valid([]byte(strings.TrimSpace(got))) {
		t.Error("output should be valid JSON")
	}
}

func TestPrinter_JSON_Compact(t *testing.T) {
	var stdout bytes.Buffer
	p := NewPrinter(&stdout, &bytes.Buffer{}, ModeCompact, false)

	data := map[string]string{"key": "value"}
	if err := p.JSON(data); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	got := strings.TrimSpace(stdout.String())
	if strings.Contains(got, "\n") {
		t.Error("compact mode should not contain newlines in JSON body")
	}
	if got != `{"key":"value"}` {
		t.Errorf("got %q, want %q", got, `{"key":"value"}`)
	}
}

func TestPrinter_Quiet(t *testing.T) {
	var stderr bytes.Buffer
	p := NewPrinter(&bytes.Buffer{}, &stderr, ModeCompact, true)

	p.Info("test info")
	p.Warn("test warn")
	p.Error("test error")

	if stderr.Len() > 0 {
		t.Errorf("quiet mode should suppress stderr, got: %q", stderr.String())
	}
}

func TestPrinter_StderrMessages(t *testing.T) {
	var stderr bytes.Buffer
	p := NewPrinter(&bytes.Buffer{}, &stderr, ModeCompact, false)

	p.Info("hello %s", "world")

	got := stderr.String()
	if !strings.Contains(got, "hello world") {
		t.Errorf("stderr should contain message, got: %q", got)
	}
	if !strings.Contains(got, "vmcli:") {
		t.Errorf("stderr should carry the vmcli prefix, got: %q", got)
	}
}

func TestPrinter_Table(t *testing.T) {
	var stdout bytes.Buffer
	p := NewPrinter(&stdout, &bytes.Buffer{}, ModeTable, false)

	err := p.Table([]string{"ID", "NAME"}, [][]string{
		{"1", "Alice"},
		{"12345", "Bob"},
	})
	if err != nil {
		t.Fatalf("Table: %v", err)
	}

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3: %q", len(lines), stdout.String())
	}
	col := strings.Index(lines[0], "NAME")
	if strings.Index(lines[1], "Alice") != col || strings.Index(lines[2], "Bob") != col {
		t.Errorf("columns not aligned:\n%s", stdout.String())
	}
	if !p.IsTable() {
		t.Error("IsTable should be true in table mode")
	}
}

func TestAmount(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		in   string
		want string
	}{
		{"12.5", "+$12.50"},
		{"-3", "-$3.00"},
		{"0", "$0.00"},
	}
	for _, tt := range tests {
		if got := Amount(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("Amount(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := Balance(decimal.NullDecimal{}); got != "?" {
		t.Errorf("unknown balance = %q, want ?", got)
	}
	if got := Balance(decimal.NewNullDecimal(decimal.RequireFromString("37"))); got != "$37.00" {
		t.Errorf("Balance = %q, want $37.00", got)
	}
}

func TestModeFromFlags(t *testing.T) {
	tests := []struct {
		pretty, compact, table bool
		want                   Mode
	}{
		{false, false, false, ModeAuto},
		{true, false, false, ModePretty},
		{false, true, false, ModeCompact},
		{false, false, true, ModeTable},
		{true, true, true, ModeTable}, // table takes priority
	}

	for _, tt := range tests {
		got := ModeFromFlags(tt.pretty, tt.compact, tt.table)
		if got != tt.want {
			t.Errorf("ModeFromFlags(%v, %v, %v) = %d, want %d", tt.pretty, tt.compact, tt.table, got, tt.want)
		}
	}
}
