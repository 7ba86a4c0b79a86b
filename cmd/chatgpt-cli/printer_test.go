package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chatgpt-cli/chatgpt-cli/internal/llm/openai"
	"github.com/chatgpt-cli/chatgpt-cli/internal/testutil"
)

// TestStreamPrinterText verifies deltas are written as they arrive and the line is closed once.
func TestStreamPrinterText(testingHandle *testing.T) {
	var out bytes.Buffer
	printer := newStreamPrinter(&out, true)

	for _, event := range []openai.Event{
		openai.TextDelta{Text: "Hel"},
		openai.TextDelta{Text: ""},
		openai.TextDelta{Text: "lo"},
	} {
		testutil.RequireNoError(testingHandle, printer.Handle(event), "handle delta")
	}
	testutil.RequireEqual(testingHandle, out.String(), "Hello", "text written immediately")

	testutil.RequireNoError(testingHandle, printer.Handle(openai.ResponseFinished{ResponseID: "resp_1"}), "handle finish")
	printer.EnsureNewline()
	testutil.RequireEqual(testingHandle, out.String(), "Hello\n", "single trailing newline")
}

// TestStreamPrinterResponseID verifies the echoed id is printed on its own line.
func TestStreamPrinterResponseID(testingHandle *testing.T) {
	var out bytes.Buffer
	printer := newStreamPrinter(&out, false)

	testutil.RequireNoError(testingHandle, printer.Handle(openai.ResponseStarted{ResponseID: "resp_7"}), "handle start")
	testutil.RequireNoError(testingHandle, printer.Handle(openai.TextDelta{Text: "ok"}), "handle delta")
	testutil.RequireNoError(testingHandle, printer.Handle(openai.StreamError{Message: "malformed response"}), "handle error")

	testutil.RequireEqual(testingHandle, out.String(), "# Response ID: resp_7\nok\n", "printed lines")
}

// TestStreamPrinterRawPayload verifies raw payloads are printed as a block.
func TestStreamPrinterRawPayload(testingHandle *testing.T) {
	var out bytes.Buffer
	printer := newStreamPrinter(&out, false)

	testutil.RequireNoError(testingHandle, printer.Handle(openai.ResponseFailed{RawPayload: "{\n  \"id\": \"resp_1\"\n}"}), "handle failure")

	testutil.RequireEqual(testingHandle, out.String(), "{\n  \"id\": \"resp_1\"\n}\n", "raw block")
}

// TestPrintError verifies the error line format.
func TestPrintError(testingHandle *testing.T) {
	var out bytes.Buffer

	printError(&out, errors.New("prompt not specified"))

	testutil.RequireEqual(testingHandle, out.String(), "Error: prompt not specified\n", "error line")
}
