// -----------------------------------------------------------------------
// Crash Reports - panic capture for unattended extraction runs
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

var (
	crashMu    sync.Mutex
	crashDir   = "./logs"
	crashLines []string // Context written at the top of every report
)

// InstallCrashHandler sets the directory crash reports are written to
func InstallCrashHandler(logDir string) {
	crashMu.Lock()
	defer crashMu.Unlock()

	if logDir != "" {
		crashDir = logDir
	}
	if err := os.MkdirAll(crashDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to create log directory: %v\n", err)
	}
}

// SetCrashContext records a key/value included in crash reports, such as the run id
func SetCrashContext(key string, value string) {
	crashMu.Lock()
	defer crashMu.Unlock()
	crashLines = append(crashLines, fmt.Sprintf("%s: %s", key, value))
}

// WriteCrashFile writes a crash report and returns its path, or "" when it went to stderr
func WriteCrashFile(panicVal interface{}, stackTrace string) string {
	crashMu.Lock()
	defer crashMu.Unlock()

	var report strings.Builder
	fmt.Fprintf(&report, "=== QUARRY CRASH REPORT ===\n")
	fmt.Fprintf(&report, "Time: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&report, "Version: %s\n", GetFullVersion())
	for _, line := range crashLines {
		report.WriteString(line + "\n")
	}
	fmt.Fprintf(&report, "\n=== PANIC ===\n%v\n", panicVal)
	fmt.Fprintf(&report, "\n=== STACK ===\n%s\n", stackTrace)
	fmt.Fprintf(&report, "\n=== RUNTIME ===\nGoroutines: %d\nGOOS/GOARCH: %s/%s\n",
		runtime.NumGoroutine(), runtime.GOOS, runtime.GOARCH)

	path := filepath.Join(crashDir, fmt.Sprintf("crash-%s.log", time.Now().Format("2006-01-02T15-04-05")))
	if err := os.WriteFile(path, []byte(report.String()), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to write crash file: %v\n%s", err, report.String())
		return ""
	}

	fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - report saved to %s !!!\nPanic: %v\n", path, panicVal)
	return path
}

// RecoverWithCrashFile writes a crash report for a panic and exits.
// Usage: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		buf := make([]byte, 16*1024)
		n := runtime.Stack(buf, false)
		WriteCrashFile(r, string(buf[:n]))
		os.Exit(1)
	}
}
