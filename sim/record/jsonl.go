package record

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// JSONLConfig names the two newline-delimited stream files.
type JSONLConfig struct {
	TelemetryPath string
	OEEPath       string
	// Append keeps existing records instead of starting both files fresh.
	Append bool
}

// JSONLSink writes each stream as one JSON object per line.
type JSONLSink struct {
	telemetry *jsonlStream
	oee       *jsonlStream
}

type jsonlStream struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	enc    *json.Encoder
}

// NewJSONLSink opens (creating as needed) both stream files.
func NewJSONLSink(cfg JSONLConfig) (*JSONLSink, error) {
	if cfg.TelemetryPath == "" {
		cfg.TelemetryPath = DefaultTelemetryFile
	}
	if cfg.OEEPath == "" {
		cfg.OEEPath = DefaultOEEFile
	}
	if cfg.TelemetryPath == cfg.OEEPath {
		return nil, fmt.Errorf("telemetry and OEE streams must use different files, both are %s", cfg.OEEPath)
	}
	telemetry, err := openStream(cfg.TelemetryPath, cfg.Append)
	if err != nil {
		return nil, err
	}
	oee, err := openStream(cfg.OEEPath, cfg.Append)
	if err != nil {
		_ = telemetry.close()
		return nil, err
	}
	return &JSONLSink{telemetry: telemetry, oee: oee}, nil
}

func openStream(path string, appendMode bool) (*jsonlStream, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening stream %s: %w", path, err)
	}
	writer := bufio.NewWriter(file)
	return &jsonlStream{path: path, file: file, writer: writer, enc: json.NewEncoder(writer)}, nil
}

func (s *jsonlStream) write(v any) error {
	if err := s.enc.Encode(v); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}

func (s *jsonlStream) close() error {
	flushErr := s.writer.Flush()
	closeErr := s.file.Close()
	if err := errors.Join(flushErr, closeErr); err != nil {
		return fmt.Errorf("closing %s: %w", s.path, err)
	}
	logrus.Debugf("Successfully wrote to '%s'", s.path)
	return nil
}

// WriteTelemetry appends one telemetry line.
func (j *JSONLSink) WriteTelemetry(rec Telemetry) error {
	return j.telemetry.write(rec)
}

// WriteOEE appends one OEE line.
func (j *JSONLSink) WriteOEE(rec OEE) error {
	return j.oee.write(rec)
}

// Close flushes and closes both files.
func (j *JSONLSink) Close() error {
	return errors.Join(j.telemetry.close(), j.oee.close())
}

// ReadTelemetryFile loads every record of a telemetry stream file.
func ReadTelemetryFile(path string) ([]Telemetry, error) {
	return readLines[Telemetry](path)
}

// ReadOEEFile loads every record of an OEE stream file.
func ReadOEEFile(path string) ([]OEE, error) {
	return readLines[OEE](path)
}

func readLines[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stream %s: %w", path, err)
	}
	defer file.Close()

	var out []T
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("parsing %s line %d: %w", path, line, err)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return out, nil
}
