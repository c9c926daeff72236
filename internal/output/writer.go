package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/shopspring/decimal"
)

// Mode controls JSON formatting behavior.
type Mode int

const (
	ModeAuto    Mode = iota // Detect TTY: pretty if terminal, compact if piped
	ModePretty              // Force indented JSON
	ModeCompact             // Force single-line JSON
	ModeTable               // Aligned columns for humans (for --table flag)
)

// Printer manages output formatting.
type Printer struct {
	stdout io.Writer
	stderr io.Writer
	mode   Mode
	quiet  bool
}

// NewPrinter creates a Printer.
func NewPrinter(stdout, stderr io.Writer, mode Mode, quiet bool) *Printer {
	if quiet {
		color.NoColor = true
	}
	return &Printer{
		stdout: stdout,
		stderr: stderr,
		mode:   mode,
		quiet:  quiet,
	}
}

// JSON writes v as JSON to stdout.
func (p *Printer) JSON(v any) error {
	var data []byte
	var err error

	switch p.effectiveMode() {
	case ModePretty:
		data, err = json.MarshalIndent(v, "", "  ")
	default:
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}

	data = append(data, '\n')
	_, err = p.stdout.Write(data)
	return err
}

// Table writes header and rows as tab-aligned columns to stdout.
func (p *Printer) Table(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(p.stdout, 0, 4, 2, ' ', 0)
	writeRow(tw, header)
	for _, row := range rows {
		writeRow(tw, row)
	}
	return tw.Flush()
}

func writeRow(w io.Writer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			io.WriteString(w, "\t")
		}
		io.WriteString(w, c)
	}
	io.WriteString(w, "\n")
}

// Amount formats a signed amount in dollars, green for money in and red for
// money out.
func Amount(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	switch d.Sign() {
	case 1:
		return color.GreenString("+$" + s)
	case -1:
		return color.RedString("-$" + s)
	}
	return "$" + s
}

// Balance formats an optional balance; unknown balances print as "?".
func Balance(b decimal.NullDecimal) string {
	if !b.Valid {
		return "?"
	}
	return "$" + b.Decimal.StringFixed(2)
}

// Error writes an error message to stderr.
func (p *Printer) Error(format string, args ...any) {
	if p.quiet {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(p.stderr, "%s %s\n", color.RedString("vmcli:"), msg)
}

// Warn writes a warning message to stderr.
func (p *Printer) Warn(format string, args ...any) {
	if p.quiet {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(p.stderr, "%s %s\n", color.YellowString("vmcli:"), msg)
}

// Info writes an informational message to stderr.
func (p *Printer) Info(format string, args ...any) {
	if p.quiet {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(p.stderr, "%s %s\n", color.CyanString("vmcli:"), msg)
}

// IsTable reports whether human-readable tables were requested.
func (p *Printer) IsTable() bool {
	return p.mode == ModeTable
}

func (p *Printer) effectiveMode() Mode {
	if p.mode != ModeAuto {
		return p.mode
	}
	if f, ok := p.stdout.(*os.File); ok && isTerminal(f) {
		return ModePretty
	}
	return ModeCompact
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ModeFromFlags converts CLI flag values to a Mode.
// Priority: table > compact > pretty > auto.
func ModeFromFlags(pretty, compact, table bool) Mode {
	switch {
	case table:
		return ModeTable
	case compact:
		return ModeCompact
	case pretty:
		return ModePretty
	default:
		return ModeAuto
	}
}
