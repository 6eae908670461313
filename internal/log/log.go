package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sync"

	"github.com/adrg/xdg"
	tea "github.com/charmbracelet/bubbletea"
)

var (
	debugEnabled bool
	logFile      *os.File

	warnMu  sync.Mutex
	warnOut io.Writer = os.Stderr
)

// Setup routes debug output to the xdg state log. Without debug nothing is
// written there, so the dashboard's alt screen is never clobbered.
func Setup(debug bool) error {
	debugEnabled = debug
	if !debug || logFile != nil {
		return nil
	}
	logPath, err := xdg.StateFile("otpwatch/debug.log")
	if err != nil {
		return err
	}
	logFile, err = tea.LogToFile(logPath, "otpwatch")
	return err
}

func Close() error {
	if logFile == nil {
		return nil
	}
	defer func() { logFile = nil }()
	return logFile.Close()
}

func DebugEnabled() bool {
	return debugEnabled
}

// SetWarnOutput changes where Warnf writes when debug logging is off.
// The dashboard passes io.Discard while it owns the terminal.
func SetWarnOutput(w io.Writer) {
	warnMu.Lock()
	defer warnMu.Unlock()
	if w == nil {
		w = io.Discard
	}
	warnOut = w
}

func Printf(format string, args ...any) {
	if debugEnabled {
		stdlog.Printf("DEBUG: "+format, args...)
	}
}

// Warnf reports a recoverable failure. In debug mode it lands in the log
// file next to the debug lines.
func Warnf(format string, args ...any) {
	if debugEnabled {
		stdlog.Printf("WARN: "+format, args...)
		return
	}
	warnMu.Lock()
	defer warnMu.Unlock()
	fmt.Fprintf(warnOut, "warning: "+format+"\n", args...)
}
