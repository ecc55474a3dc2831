package lg

import (
	"bytes"
	"log"
	"strings"

	"go.uber.org/zap/zapcore"
)

// defaultLogger falls back to the standard log package.
type defaultLogger struct{}

func (d defaultLogger) Debug(msg string, fields ...Field) {}

func (d defaultLogger) Info(msg string, fields ...Field) {
	log.Println("INFO:", msg, flatten(fields...))
}

func (d defaultLogger) Warn(msg string, fields ...Field) {
	log.Println("WARN:", msg, flatten(fields...))
}

func (d defaultLogger) Error(msg string, fields ...Field) {
	log.Println("ERROR:", msg, flatten(fields...))
}

func (d defaultLogger) With(fields ...Field) Logger { return d }
func (d defaultLogger) Sync() error                 { return nil }

// flatten converts a list of zap log fields into a space-separated string of
// key-value pairs, "key1=value1 key2=value2 ...", using zap's console encoder
// so durations, errors and nested objects render the same way zap would.
// Returns an empty string if no fields are provided.
func flatten(fields ...Field) string {
	if len(fields) == 0 {
		return ""
	}
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		LineEnding: " ",
	})
	buffer, err := enc.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return ""
	}
	defer buffer.Free()

	buf := new(bytes.Buffer)
	buf.Write(buffer.Bytes())
	return strings.TrimSpace(buf.String())
}
