// Package lineproc is the Line Processor: it reads directive lines from an
// io.Reader, strips comments and blank lines, and hands each surviving line
// to the directive dispatcher. An unrecognized or failing directive is
// logged and processing continues with the next line, matching
// the original nsupdate's interactive-friendly behavior of never aborting
// the whole session over one bad line.
package lineproc

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nsupdate-go/nsupdate/internal/directive"
)

// Run reads newline-delimited directives from r until EOF, dispatching each
// through env. It returns nil on a clean EOF; a non-nil error only for a
// read error from r itself (directive errors are logged, not propagated).
func Run(r io.Reader, env directive.Env, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		if strings.TrimSpace(line) == "" {
			continue
		}

		matched, err := directive.Dispatch(env, line)
		switch {
		case !matched:
			log.Warn("unrecognized directive", "line", lineNo, "text", line)
		case err != nil:
			log.Error("directive failed", "line", lineNo, "text", line, "err", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading directives: %w", err)
	}
	return nil
}

// stripComment blanks a line whose first non-space byte is ';', matching
// the original's `lp[0] == ';'` check: a semicolon is only a comment marker
// at the start of a line. One appearing later (e.g. inside TXT rdata) is
// ordinary text and reaches the dispatcher unchanged.
func stripComment(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, ";") {
		return ""
	}
	return line
}
