// Package logging configures the process-wide logrus logger.
package logging

import (
    "bytes"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "sort"
    "strings"

    log "github.com/sirupsen/logrus"
    "gopkg.in/natefinch/lumberjack.v2"
)

// RequestIDField is the entry field the formatter lifts into its own column.
const RequestIDField = "request_id"

// LineFormatter renders one line per entry:
// [2026-03-01 12:00:00] [a1b2c3d4] [info ] [server.go:88] message | k=v, k2=v2
type LineFormatter struct{}

func (f *LineFormatter) Format(entry *log.Entry) ([]byte, error) {
    buf := entry.Buffer
    if buf == nil {
        buf = &bytes.Buffer{}
    }

    reqID := "--------"
    if id, ok := entry.Data[RequestIDField].(string); ok && id != "" {
        reqID = id
    }
    level := entry.Level.String()
    if level == "warning" {
        level = "warn"
    }

    fmt.Fprintf(buf, "[%s] [%s] [%-5s]", entry.Time.Format("2006-01-02 15:04:05"), reqID, level)
    if entry.Caller != nil {
        fmt.Fprintf(buf, " [%s:%d]", filepath.Base(entry.Caller.File), entry.Caller.Line)
    }
    buf.WriteByte(' ')
    buf.WriteString(strings.TrimRight(entry.Message, "\r\n"))

    keys := make([]string, 0, len(entry.Data))
    for k := range entry.Data {
        if k != RequestIDField {
            keys = append(keys, k)
        }
    }
    sort.Strings(keys)
    for i, k := range keys {
        if i == 0 {
            buf.WriteString(" |")
        } else {
            buf.WriteByte(',')
        }
        fmt.Fprintf(buf, " %s=%v", k, entry.Data[k])
    }
    buf.WriteByte('\n')
    return buf.Bytes(), nil
}

// Setup points the standard logger at stdout, or at a rotating file when
// file is set, and applies level. The returned closer releases the file.
func Setup(level, file string) (io.Closer, error) {
    lvl := log.InfoLevel
    if level != "" {
        parsed, err := log.ParseLevel(level)
        if err != nil {
            return nil, fmt.Errorf("logging: %w", err)
        }
        lvl = parsed
    }
    log.SetLevel(lvl)
    log.SetReportCaller(true)
    log.SetFormatter(&LineFormatter{})

    if file == "" {
        log.SetOutput(os.Stdout)
        return io.NopCloser(nil), nil
    }
    if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
        return nil, fmt.Errorf("logging: create log directory: %w", err)
    }
    w := &lumberjack.Logger{
        Filename:   file,
        MaxSize:    10,
        MaxBackups: 5,
        MaxAge:     28,
    }
    log.SetOutput(w)
    return w, nil
}
