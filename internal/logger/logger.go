// Package logger is the console logger shared by the pipeline stages.
// Info, Warn and Error always print; Debug prints only in verbose mode.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

var (
	mu      sync.Mutex
	verbose bool
	output  io.Writer = os.Stdout

	debugTag = color.New(color.FgHiBlack).Sprint("DEBUG")
	warnTag  = color.New(color.FgYellow).Sprint("WARN")
	errorTag = color.New(color.FgRed, color.Bold).Sprint("ERROR")
)

// SetVerbose enables or disables debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// SetOutput redirects all log output. Defaults to os.Stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Writer returns the current output so callers can share the same sink.
func Writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

// Println writes a plain progress line.
func Println(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(output, format+"\n", args...)
}

func Info(format string, args ...any) {
	Println("  "+format, args...)
}

func Debug(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "  %s: "+format+"\n", append([]any{debugTag}, args...)...)
	}
}

func Warn(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(output, "  %s: "+format+"\n", append([]any{warnTag}, args...)...)
}

func Error(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(output, "  %s: "+format+"\n", append([]any{errorTag}, args...)...)
}
