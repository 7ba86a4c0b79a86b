package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/chatgpt-cli/chatgpt-cli/internal/llm/openai"
)

var (
	responseIDStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// streamPrinter renders decoded stream events to the terminal.
type streamPrinter struct {
	// out receives assistant text and raw payloads.
	out io.Writer
	// styled enables lipgloss styling for metadata lines.
	styled bool
	// renderer is set when markdown rendering is active.
	renderer *glamour.TermRenderer
	// text buffers deltas while markdown rendering is active.
	text strings.Builder
	// lineOpen tracks whether a streaming line is in progress.
	lineOpen bool
}

// newStreamPrinter constructs a printer. Markdown rendering and styling only
// apply when out is a terminal.
func newStreamPrinter(out io.Writer, markdown bool) *streamPrinter {
	printer := &streamPrinter{
		out:    out,
		styled: isTerminal(out),
	}
	if markdown && printer.styled {
		if renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle()); err == nil {
			printer.renderer = renderer
		}
	}
	return printer
}

// Handle prints one event. It is the dispatcher's event handler.
func (p *streamPrinter) Handle(event openai.Event) error {
	switch typed := event.(type) {
	case openai.ResponseStarted:
		p.EnsureNewline()
		line := "# Response ID: " + typed.ResponseID
		if p.styled {
			line = responseIDStyle.Render(line)
		}
		_, err := fmt.Fprintln(p.out, line)
		return err

	case openai.TextDelta:
		if p.renderer != nil {
			p.text.WriteString(typed.Text)
			return nil
		}
		if typed.Text == "" {
			return nil
		}
		p.lineOpen = true
		_, err := fmt.Fprint(p.out, typed.Text)
		return err

	case openai.ResponseFinished:
		if typed.RawPayload != "" {
			return p.writeBlock(typed.RawPayload)
		}
		return p.flushMarkdown()

	case openai.ResponseFailed:
		if typed.RawPayload != "" {
			return p.writeBlock(typed.RawPayload)
		}
		return p.flushMarkdown()

	case openai.StreamError:
		// The error itself is reported by the caller.
		return p.flushMarkdown()
	}
	return nil
}

// EnsureNewline terminates a streaming line if one is active.
func (p *streamPrinter) EnsureNewline() {
	if !p.lineOpen {
		return
	}
	fmt.Fprintln(p.out)
	p.lineOpen = false
}

// writeBlock prints a complete payload on its own lines.
func (p *streamPrinter) writeBlock(block string) error {
	p.EnsureNewline()
	_, err := fmt.Fprintln(p.out, block)
	return err
}

// flushMarkdown renders buffered text, falling back to plain output.
func (p *streamPrinter) flushMarkdown() error {
	if p.renderer == nil || p.text.Len() == 0 {
		p.EnsureNewline()
		return nil
	}
	text := p.text.String()
	p.text.Reset()
	rendered, err := p.renderer.Render(text)
	if err != nil {
		return p.writeBlock(text)
	}
	_, err = fmt.Fprint(p.out, rendered)
	return err
}

// printError reports a failure the way the CLI always has: "Error: <msg>".
func printError(out io.Writer, err error) {
	line := "Error: " + err.Error()
	if isTerminal(out) {
		line = errorStyle.Render(line)
	}
	fmt.Fprintln(out, line)
}

// isTerminal reports whether w is a terminal file descriptor.
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
