package lilypond

import (
	"fmt"
	"io"
	"strings"
)

// lyWriter writes indented LilyPond text. Write errors are sticky and
// surface once at the end of the export.
type lyWriter struct {
	w          io.Writer
	indentSize int
	current    int
	needIndent bool
	err        error
}

func newLyWriter(w io.Writer, indentSize int) *lyWriter {
	return &lyWriter{w: w, indentSize: indentSize}
}

func (w *lyWriter) emit(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

func (w *lyWriter) maybeIndent() {
	if !w.needIndent {
		return
	}
	w.needIndent = false
	w.emit(strings.Repeat(" ", w.current))
}

func (w *lyWriter) Printf(format string, args ...any) {
	w.maybeIndent()
	w.emit(fmt.Sprintf(format, args...))
}

func (w *lyWriter) Newline() {
	w.emit("\n")
	w.needIndent = true
}

func (w *lyWriter) Println(format string, args ...any) {
	w.Printf(format, args...)
	w.Newline()
}

// Scope prints the header, opens an indented brace block around body, and
// closes it.
func (w *lyWriter) Scope(header string, body func()) {
	w.Printf("%s", header)
	w.current += w.indentSize
	w.Println("{")
	body()
	w.current -= w.indentSize
	w.Println("}")
}
