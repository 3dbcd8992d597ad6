package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"
)

// Log lines go to the console and, once InitLogger has run, to a per-run file
// under <project>/logs. The file keeps everything the console shows.

var (
	labels = map[levels.Level]string{
		levels.LevelFatal:   "FTL",
		levels.LevelError:   "ERR",
		levels.LevelWarning: "WRN",
		levels.LevelInfo:    "INF",
		levels.LevelDebug:   "DBG",
		levels.LevelVerbose: "VRB",
	}
	paints = map[levels.Level]*color.Color{
		levels.LevelFatal:   color.New(color.FgRed, color.Bold),
		levels.LevelError:   color.New(color.FgRed),
		levels.LevelWarning: color.New(color.FgYellow),
		levels.LevelInfo:    color.New(color.FgBlue),
		levels.LevelDebug:   color.New(color.FgMagenta),
		levels.LevelVerbose: color.New(color.FgCyan),
	}
)

type teeWriter struct {
	mu   sync.Mutex
	file *os.File
}

func (w *teeWriter) Write(data []byte, level levels.Level) {
	w.mu.Lock()
	defer w.mu.Unlock()

	label := labels[level]
	if label == "" {
		label = "INF"
	}
	paint := paints[level]
	if paint == nil {
		paint = paints[levels.LevelInfo]
	}
	line := strings.TrimRight(string(data), "\n")

	fmt.Fprintf(os.Stderr, "[%s] %s\n", paint.Sprint(label), line)
	if w.file != nil {
		fmt.Fprintf(w.file, "%s [%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), label, line)
	}
}

// InitLogger routes gologger output to the console and to
// <projectDir>/logs/<module>_<timestamp>.log. The returned closer flushes and
// detaches the file.
func InitLogger(projectDir, module string, verbose bool) (func(), error) {
	logsDir := filepath.Join(projectDir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}

	ts := time.Now().Format("2006-01-02_15-04-05")
	path := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", module, ts))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	w := &teeWriter{file: f}
	gologger.DefaultLogger.SetWriter(w)
	if verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelDebug)
	} else {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelInfo)
	}
	gologger.Info().Msgf("log_file: %s", path)

	closer := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.file != nil {
			w.file.Close()
			w.file = nil
		}
	}
	return closer, nil
}
