// Package datalog persists observation entries to a dual sink: a tabular
// CSV file whose header is the union of every column ever observed, and a
// structured JSON document preserving the full nested records.
package datalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/signalsfoundry/venus-observer/internal/logging"
	"github.com/signalsfoundry/venus-observer/model"
)

// ErrUnsupportedFormat is returned by Export for formats other than csv and
// json. It is a recovered error: no file is produced and no existing file is
// touched.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// MetricsRecorder receives data logger instrumentation. Implemented by
// observability.TrackerCollector; nil disables instrumentation.
type MetricsRecorder interface {
	ObserveAppend(d time.Duration)
	SetDatasetEntries(count int)
}

// structuredRecord is one element of the JSON document's entries list. The
// atmosphere key is present (null when the estimator did not run) so the
// document shape is uniform across sessions.
type structuredRecord struct {
	Timestamp  time.Time               `json:"timestamp"`
	Position   model.BodyPosition      `json:"position"`
	Atmosphere *model.AtmosphereRecord `json:"atmosphere"`
}

type structuredDocument struct {
	Entries []json.RawMessage `json:"entries"`
}

// Dataset is an append-only observation log. On open, any pre-existing
// tabular file becomes the immutable baseline; appended entries accumulate
// in a buffer. Every flush rewrites the tabular sink as baseline plus buffer
// under the current column union, and read-modify-writes the structured
// document beside it.
//
// Dataset is not safe for concurrent use, and persistence is whole-file
// rewrite, so concurrent writers to the same path are unsafe by design.
type Dataset struct {
	tabularPath    string
	structuredPath string
	log            logging.Logger
	metrics        MetricsRecorder

	columns  []string            // union of observed columns, first-seen order
	baseline []map[string]string // rows loaded from the pre-existing tabular file
	buffer   []model.LogEntry

	// structuredSynced counts buffer entries already written to the
	// structured document, so a failed write retries the same entries.
	structuredSynced int
}

// Option customizes a Dataset.
type Option func(*Dataset)

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(d *Dataset) { d.metrics = m }
}

// Open acquires the dataset rooted at the tabular path. The structured
// document lives beside it with a .json extension. A pre-existing tabular
// file is parsed once into the baseline; a corrupt file degrades to an empty
// baseline with a warning, never an error.
func Open(path string, log logging.Logger, opts ...Option) (*Dataset, error) {
	if log == nil {
		log = logging.Noop()
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dataset directory: %w", err)
		}
	}

	d := &Dataset{
		tabularPath:    path,
		structuredPath: structuredPathFor(path),
		log:            log,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.loadBaseline()
	return d, nil
}

func structuredPathFor(tabularPath string) string {
	ext := filepath.Ext(tabularPath)
	return strings.TrimSuffix(tabularPath, ext) + ".json"
}

// loadBaseline reads the existing tabular file, if any. Parse failures are
// recovered: the baseline starts empty and the corrupt file is overwritten
// on the next flush.
func (d *Dataset) loadBaseline() {
	ctx := context.Background()

	info, err := os.Stat(d.tabularPath)
	if err != nil || info.Size() == 0 {
		return
	}

	f, err := os.Open(d.tabularPath)
	if err != nil {
		d.log.Warn(ctx, "cannot read existing dataset; starting empty",
			logging.String("path", d.tabularPath), logging.Err(err))
		return
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		d.log.Warn(ctx, "existing dataset is not valid CSV; starting empty",
			logging.String("path", d.tabularPath), logging.Err(err))
		return
	}
	if len(records) == 0 {
		return
	}

	header := records[0]
	d.columns = append(d.columns, header...)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		d.baseline = append(d.baseline, row)
	}

	d.log.Info(ctx, "loaded existing dataset",
		logging.String("path", d.tabularPath),
		logging.Int("rows", len(d.baseline)),
	)
}

// Append converts the observation to a log entry, buffers it, and flushes
// both sinks. A write failure is surfaced and leaves the buffer intact, so a
// retried append loses nothing.
func (d *Dataset) Append(ctx context.Context, ts time.Time, pos model.BodyPosition, atmo *model.AtmosphereRecord) error {
	start := time.Now()

	entry := model.LogEntry{Timestamp: ts, Position: pos, Atmosphere: atmo}
	d.buffer = append(d.buffer, entry)
	d.mergeColumns(entry.Columns())

	if err := d.Flush(ctx); err != nil {
		return err
	}

	if d.metrics != nil {
		d.metrics.ObserveAppend(time.Since(start))
		d.metrics.SetDatasetEntries(d.Len())
	}
	return nil
}

// Flush persists the current state: the tabular sink is rewritten whole as
// baseline plus buffer, and entries not yet present in the structured
// document are appended to it via a whole-document read-modify-write.
func (d *Dataset) Flush(ctx context.Context) error {
	if err := d.writeTabular(d.tabularPath); err != nil {
		return fmt.Errorf("write tabular sink: %w", err)
	}
	if err := d.syncStructured(ctx); err != nil {
		return fmt.Errorf("write structured sink: %w", err)
	}
	return nil
}

// Len returns the number of logical entries, baseline plus buffer.
func (d *Dataset) Len() int {
	return len(d.baseline) + len(d.buffer)
}

// Columns returns a copy of the current column union.
func (d *Dataset) Columns() []string {
	cols := make([]string, len(d.columns))
	copy(cols, d.columns)
	return cols
}

// TabularPath returns the path of the live tabular sink.
func (d *Dataset) TabularPath() string { return d.tabularPath }

// StructuredPath returns the path of the live structured sink.
func (d *Dataset) StructuredPath() string { return d.structuredPath }

// Export materializes the complete in-memory dataset to the requested
// format, independent of the live files. It returns the written path. An
// unsupported format returns ErrUnsupportedFormat and touches nothing.
func (d *Dataset) Export(ctx context.Context, format, path string) (string, error) {
	switch strings.ToLower(format) {
	case "csv":
		if path == "" {
			path = exportPathFor(d.tabularPath, "csv")
		}
		if err := d.writeTabular(path); err != nil {
			return "", fmt.Errorf("export csv: %w", err)
		}
	case "json":
		if path == "" {
			path = exportPathFor(d.tabularPath, "json")
		}
		if err := d.writeFlatJSON(path); err != nil {
			return "", fmt.Errorf("export json: %w", err)
		}
	default:
		return "", fmt.Errorf("export %q: %w", format, ErrUnsupportedFormat)
	}

	d.log.Info(ctx, "dataset exported",
		logging.String("format", strings.ToLower(format)),
		logging.String("path", path),
		logging.Int("entries", d.Len()),
	)
	return path, nil
}

// mergeColumns grows the union with any columns not seen before. The union
// never shrinks within a session.
func (d *Dataset) mergeColumns(cols []string) {
	known := make(map[string]bool, len(d.columns))
	for _, c := range d.columns {
		known[c] = true
	}
	for _, c := range cols {
		if !known[c] {
			d.columns = append(d.columns, c)
			known[c] = true
		}
	}
}

// writeTabular rewrites a CSV file as baseline plus buffer under the column
// union header. Cells for columns an entry never populated are left empty.
func (d *Dataset) writeTabular(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(d.columns); err != nil {
		f.Close()
		return err
	}

	writeRow := func(values map[string]string) error {
		rec := make([]string, len(d.columns))
		for i, col := range d.columns {
			rec[i] = values[col]
		}
		return w.Write(rec)
	}

	for _, row := range d.baseline {
		if err := writeRow(row); err != nil {
			f.Close()
			return err
		}
	}
	for _, entry := range d.buffer {
		if err := writeRow(entry.Values()); err != nil {
			f.Close()
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// syncStructured appends buffered entries that have not reached the
// structured document yet. The document is read whole, extended, and
// rewritten whole; an unreadable document degrades to a fresh one with a
// warning.
func (d *Dataset) syncStructured(ctx context.Context) error {
	if d.structuredSynced >= len(d.buffer) {
		return nil
	}

	var doc structuredDocument
	raw, err := os.ReadFile(d.structuredPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// fresh document
	case err != nil:
		d.log.Warn(ctx, "cannot read structured sink; starting a fresh document",
			logging.String("path", d.structuredPath), logging.Err(err))
	default:
		if err := json.Unmarshal(raw, &doc); err != nil {
			d.log.Warn(ctx, "structured sink is not valid JSON; starting a fresh document",
				logging.String("path", d.structuredPath), logging.Err(err))
			doc = structuredDocument{}
		}
	}

	for _, entry := range d.buffer[d.structuredSynced:] {
		rec, err := json.Marshal(structuredRecord{
			Timestamp:  entry.Timestamp.UTC(),
			Position:   entry.Position,
			Atmosphere: entry.Atmosphere,
		})
		if err != nil {
			return err
		}
		doc.Entries = append(doc.Entries, rec)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(d.structuredPath, out, 0o644); err != nil {
		return err
	}

	d.structuredSynced = len(d.buffer)
	return nil
}

// writeFlatJSON exports every logical entry as a flat column->value object
// under a single top-level entries list, mirroring the tabular layout.
// Columns an entry never populated serialize as null.
func (d *Dataset) writeFlatJSON(path string) error {
	entries := make([]map[string]any, 0, d.Len())

	flatten := func(values map[string]string) map[string]any {
		obj := make(map[string]any, len(d.columns))
		for _, col := range d.columns {
			if v, ok := values[col]; ok {
				obj[col] = v
			} else {
				obj[col] = nil
			}
		}
		return obj
	}

	for _, row := range d.baseline {
		entries = append(entries, flatten(row))
	}
	for _, entry := range d.buffer {
		entries = append(entries, flatten(entry.Values()))
	}

	out, err := json.MarshalIndent(map[string]any{"entries": entries}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func exportPathFor(tabularPath, format string) string {
	ext := filepath.Ext(tabularPath)
	return strings.TrimSuffix(tabularPath, ext) + "_export." + format
}
