package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type checkLevel int

const (
	checkNote checkLevel = iota
	checkPass
	checkWarn
	checkFail
)

var checkLevels = map[checkLevel]struct {
	tag   string
	color string
}{
	checkNote: {"INFO", "\x1b[34m"},
	checkPass: {"OK", "\x1b[32m"},
	checkWarn: {"WARN", "\x1b[33m"},
	checkFail: {"ERROR", "\x1b[31m"},
}

const (
	ansiReset       = "\x1b[0m"
	checkLabelWidth = 12
)

// checkReport prints a titled block of "label: [TAG] message" lines, coloured
// when the writer is a terminal.
type checkReport struct {
	out   io.Writer
	color bool
}

func newCheckReport(out io.Writer, title string) *checkReport {
	r := &checkReport{out: out, color: isTerminal(out)}
	heading := "== " + strings.TrimSpace(title) + " =="
	r.println(checkNote, heading)
	r.println(checkNote, strings.Repeat("-", len(heading)))
	return r
}

func (r *checkReport) line(label string, level checkLevel, message string) {
	tag := "[" + checkLevels[level].tag + "]"
	if message != "" {
		tag += " " + message
	}
	r.println(level, fmt.Sprintf("  %-*s %s", checkLabelWidth, label+":", tag))
}

func (r *checkReport) println(level checkLevel, text string) {
	if r.color {
		text = checkLevels[level].color + text + ansiReset
	}
	fmt.Fprintln(r.out, text)
}

// isTerminal reports whether w is an interactive terminal. It decides colour
// for check output and whether `run` draws progress bars.
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
