// Package cli holds the small pieces of command-line glue shared by the
// four toolchain binaries (letc, leta, letl, letr): the mna/mainer-based
// version/help/error boilerplate the teacher's single multi-command
// binary also carries, generalized here to be reused across several
// single-purpose binaries instead of one reflection-dispatched one.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arcbyte/let/lang/parser"
	"github.com/arcbyte/let/lang/token"
	"github.com/mna/mainer"
)

// Base is embedded by each binary's own flag struct. It carries the
// fields every one of them exposes identically.
type Base struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`
}

// WantsHelpOrVersion reports whether Main should short-circuit before
// running the binary's actual work.
func (b *Base) WantsHelpOrVersion() bool { return b.Help || b.Version }

// PrintVersion writes the conventional "name version date" line.
func PrintVersion(stdio mainer.Stdio, binName string, b Base) {
	fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, b.BuildVersion, b.BuildDate)
}

// PrintError writes err to stderr if non-nil and returns it unchanged, so
// a command body can end with `return cli.PrintError(stdio, err)`.
func PrintError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

// FormatParseError renders a *parser.Error as a "file:line:col: message"
// line followed by one line of source context and a "^~~~" underline
// spanning the offending token, by resolving its byte range against the
// original source the way the teacher's scanner package turns a
// token.Pos into human-readable coordinates. Any other error is
// rendered as-is.
func FormatParseError(filename string, src []byte, err error) string {
	perr, ok := err.(*parser.Error)
	if !ok {
		return err.Error()
	}
	f := token.NewFile(filename, src)
	pos := f.Position(perr.Start)

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", pos, perr.Msg)

	line := sourceLine(src, pos.Offset)
	if line == "" {
		return strings.TrimSuffix(b.String(), "\n")
	}
	b.WriteString(line)
	b.WriteByte('\n')

	width := int(perr.End) - int(perr.Start)
	if width < 1 {
		width = 1
	}
	b.WriteString(strings.Repeat(" ", pos.Column-1))
	b.WriteByte('^')
	if width > 1 {
		b.WriteString(strings.Repeat("~", width-1))
	}
	return b.String()
}

// sourceLine returns the full line of src containing byte offset off,
// without its trailing newline.
func sourceLine(src []byte, off int) string {
	start := off
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := off
	for end < len(src) && src[end] != '\n' {
		end++
	}
	return string(src[start:end])
}

// ReadFile reads path, translating the empty/"-" convention (read
// standard input) that letc and leta use for their single required input
// argument. letl and letr read their inputs with os.ReadFile instead.
func ReadFile(stdio mainer.Stdio, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return readAll(stdio)
	}
	return os.ReadFile(path)
}

func readAll(stdio mainer.Stdio) ([]byte, error) {
	const chunk = 4096
	var buf []byte
	tmp := make([]byte, chunk)
	for {
		n, err := stdio.Stdin.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return buf, nil
			}
			return buf, err
		}
	}
}

// WriteOutput writes b to path, or to stdout when path is empty or "-".
func WriteOutput(stdio mainer.Stdio, path string, b []byte) error {
	if path == "" || path == "-" {
		_, err := stdio.Stdout.Write(b)
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
