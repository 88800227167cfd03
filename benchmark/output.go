package benchmark

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Columns is the header written on line 3 of every result file. Each data
// row carries exactly these values in this order.
var Columns = []string{
	"time_ms",
	"cpu",
	"mem_kib",
	"disk_space_kib",
	"disk_writes_kib",
	"disk_reads_kib",

	"write_ops",
	"point_read_ops",
	"range_ops",
	"delete_ops",

	"write_latency",
	"point_read_latency",
	"range_latency",
	"delete_latency",

	"written_kib",
	"deleted_kib",

	"write_amp",
	"space_amp",
}

// RecordWriter writes a result file as newline-delimited JSON:
//
//	{ system info object }
//	{ run config object }
//	[header 1, header 2, ...]
//	[value, value, ...]
//	...
//	{"fin":true}
//
// Every line is flushed as soon as it is written so the file can be read
// while it grows.
type RecordWriter struct {
	out     io.Writer
	file    *os.File
	buf     *bufio.Writer
	enc     *json.Encoder
	columns int
	closed  bool
}

// CreateRecordWriter creates (or truncates) the result file at path
func CreateRecordWriter(path string) (*RecordWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	w := NewRecordWriter(file)
	w.file = file
	return w, nil
}

// NewRecordWriter writes records to out
func NewRecordWriter(out io.Writer) *RecordWriter {
	buf := bufio.NewWriter(out)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &RecordWriter{
		out: out,
		buf: buf,
		enc: enc,
	}
}

func (w *RecordWriter) writeLine(v any) error {
	// Encode terminates every value with a newline
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// WriteObject writes one JSON object line (system info, run config)
func (w *RecordWriter) WriteObject(v any) error {
	return w.writeLine(v)
}

// WriteHeader writes the column names and fixes the row width
func (w *RecordWriter) WriteHeader(columns []string) error {
	w.columns = len(columns)
	return w.writeLine(columns)
}

// WriteRow writes one data row. The row must match the header width.
func (w *RecordWriter) WriteRow(values []any) error {
	if len(values) != w.columns {
		return fmt.Errorf("row has %d values, header has %d", len(values), w.columns)
	}
	return w.writeLine(values)
}

// WriteFin writes the completion sentinel
func (w *RecordWriter) WriteFin() error {
	return w.writeLine(map[string]bool{"fin": true})
}

// Close flushes, syncs and closes the underlying file, if any. Only the
// first call has an effect.
func (w *RecordWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to sync output: %w", err)
	}
	return w.file.Close()
}
