package datalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalsfoundry/venus-observer/internal/logging"
	"github.com/signalsfoundry/venus-observer/model"
)

func testPosition() model.BodyPosition {
	return model.BodyPosition{
		Altitude:   25.5,
		Azimuth:    210.3,
		Distance:   model.DistanceAU(0.72),
		RA:         3.2,
		Dec:        14.1,
		Elongation: 46,
	}
}

func testAtmosphere() *model.AtmosphereRecord {
	return &model.AtmosphereRecord{
		CloudTemperature:   model.TemperatureK(190),
		SurfaceTemperature: model.TemperatureK(737),
		GroundTemperature:  model.TemperatureK(740),
		CloudPressure:      model.PressureBar(0.5),
		SurfacePressure:    model.PressureBar(92),
		SurfaceWind:        model.WindMPerS(0.65),
		SurfaceLight:       model.LightIntensity{Lux: 2500},
		MainCompounds:      []string{"CO2", "N2", "SO2"},
		Phase:              0.5,
		Notes:              "Standard conditions",
	}
}

func openTestDataset(t *testing.T, path string) *Dataset {
	t.Helper()
	d, err := Open(path, logging.Noop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return d
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return records
}

func readStructured(t *testing.T, path string) structuredDocument {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var doc structuredDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return doc
}

func TestAppendWritesBothSinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venus_data.csv")
	d := openTestDataset(t, path)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := d.Append(ctx, base.Add(time.Duration(i)*time.Minute), testPosition(), testAtmosphere()); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	records := readCSV(t, path)
	if len(records) != 4 {
		t.Fatalf("tabular sink has %d rows, want header + 3", len(records))
	}
	if records[0][0] != "timestamp" {
		t.Errorf("header starts with %q, want timestamp", records[0][0])
	}
	if records[1][0] != "2026-03-01T12:00:00Z" {
		t.Errorf("first row timestamp = %q", records[1][0])
	}

	doc := readStructured(t, d.StructuredPath())
	if len(doc.Entries) != 3 {
		t.Fatalf("structured sink has %d entries, want 3", len(doc.Entries))
	}
	if d.Len() != 3 {
		t.Errorf("Len() = %d, want 3", d.Len())
	}
}

func TestColumnUnionGrows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venus_data.csv")
	d := openTestDataset(t, path)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Position-only entry first: 8 columns.
	if err := d.Append(ctx, base, testPosition(), nil); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := len(d.Columns()); got != 8 {
		t.Fatalf("columns after bare entry = %d, want 8", got)
	}

	// An entry with atmosphere widens the union; the whole file is
	// rewritten under the new header.
	if err := d.Append(ctx, base.Add(time.Minute), testPosition(), testAtmosphere()); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := len(d.Columns()); got != 23 {
		t.Fatalf("columns after atmosphere entry = %d, want 23", got)
	}

	records := readCSV(t, path)
	if len(records[0]) != 23 {
		t.Fatalf("header has %d columns, want 23", len(records[0]))
	}
	// The earlier row has empty cells for the columns it never populated.
	first := records[1]
	if first[len(first)-1] != "" {
		t.Errorf("bare entry's notes cell = %q, want empty", first[len(first)-1])
	}
	second := records[2]
	if second[len(second)-1] != "Standard conditions" {
		t.Errorf("atmosphere entry's notes cell = %q", second[len(second)-1])
	}
}

func TestReopenLoadsBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venus_data.csv")
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	d := openTestDataset(t, path)
	for i := 0; i < 2; i++ {
		if err := d.Append(ctx, base.Add(time.Duration(i)*time.Minute), testPosition(), testAtmosphere()); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	reopened := openTestDataset(t, path)
	if reopened.Len() != 2 {
		t.Fatalf("reopened Len() = %d, want 2", reopened.Len())
	}
	if err := reopened.Append(ctx, base.Add(time.Hour), testPosition(), testAtmosphere()); err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 4 {
		t.Fatalf("tabular sink has %d rows after reopen, want header + 3", len(records))
	}
	if records[1][0] != "2026-03-01T12:00:00Z" {
		t.Errorf("baseline row lost: first timestamp = %q", records[1][0])
	}
	if records[3][0] != "2026-03-01T13:00:00Z" {
		t.Errorf("appended row missing: last timestamp = %q", records[3][0])
	}
}

func TestCorruptBaselineRecovered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venus_data.csv")
	if err := os.WriteFile(path, []byte("timestamp,altitude\n\"unterminated\n"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	d := openTestDataset(t, path)
	if d.Len() != 0 {
		t.Fatalf("corrupt baseline produced %d entries, want 0", d.Len())
	}

	if err := d.Append(context.Background(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), testPosition(), nil); err != nil {
		t.Fatalf("Append over corrupt file: %v", err)
	}
	records := readCSV(t, path)
	if len(records) != 2 {
		t.Fatalf("tabular sink has %d rows, want header + 1", len(records))
	}
}

func TestCorruptStructuredRecovered(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "venus_data.csv")
	if err := os.WriteFile(filepath.Join(dir, "venus_data.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt document: %v", err)
	}

	d := openTestDataset(t, path)
	if err := d.Append(context.Background(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), testPosition(), testAtmosphere()); err != nil {
		t.Fatalf("Append: %v", err)
	}

	doc := readStructured(t, d.StructuredPath())
	if len(doc.Entries) != 1 {
		t.Fatalf("fresh document has %d entries, want 1", len(doc.Entries))
	}
}

func TestStructuredEntriesAccumulate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venus_data.csv")
	d := openTestDataset(t, path)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := d.Append(ctx, base, testPosition(), nil); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := d.Append(ctx, base.Add(time.Minute), testPosition(), testAtmosphere()); err != nil {
		t.Fatalf("Append: %v", err)
	}

	doc := readStructured(t, d.StructuredPath())
	if len(doc.Entries) != 2 {
		t.Fatalf("document has %d entries, want 2", len(doc.Entries))
	}

	var first struct {
		Atmosphere *model.AtmosphereRecord `json:"atmosphere"`
	}
	if err := json.Unmarshal(doc.Entries[0], &first); err != nil {
		t.Fatalf("parse entry: %v", err)
	}
	if first.Atmosphere != nil {
		t.Errorf("bare entry's atmosphere should serialize as null")
	}
}

func TestExportCSVAndJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "venus_data.csv")
	d := openTestDataset(t, path)
	ctx := context.Background()

	if err := d.Append(ctx, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), testPosition(), testAtmosphere()); err != nil {
		t.Fatalf("Append: %v", err)
	}

	csvPath, err := d.Export(ctx, "csv", "")
	if err != nil {
		t.Fatalf("Export csv: %v", err)
	}
	if want := filepath.Join(dir, "venus_data_export.csv"); csvPath != want {
		t.Errorf("csv export path = %q, want %q", csvPath, want)
	}
	if records := readCSV(t, csvPath); len(records) != 2 {
		t.Errorf("csv export has %d rows, want header + 1", len(records))
	}

	jsonPath, err := d.Export(ctx, "json", "")
	if err != nil {
		t.Fatalf("Export json: %v", err)
	}
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read json export: %v", err)
	}
	var flat struct {
		Entries []map[string]any `json:"entries"`
	}
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("parse json export: %v", err)
	}
	if len(flat.Entries) != 1 {
		t.Fatalf("json export has %d entries, want 1", len(flat.Entries))
	}
	if flat.Entries[0]["notes"] != "Standard conditions" {
		t.Errorf("json export notes = %v", flat.Entries[0]["notes"])
	}
}

func TestExportUnsupportedFormatTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "venus_data.csv")
	d := openTestDataset(t, path)
	ctx := context.Background()

	if err := d.Append(ctx, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), testPosition(), testAtmosphere()); err != nil {
		t.Fatalf("Append: %v", err)
	}
	tabularBefore, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read tabular: %v", err)
	}
	structuredBefore, err := os.ReadFile(d.StructuredPath())
	if err != nil {
		t.Fatalf("read structured: %v", err)
	}

	_, err = d.Export(ctx, "xml", "")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Export xml error = %v, want ErrUnsupportedFormat", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("list dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("rejected export produced files: %v", entries)
	}
	tabularAfter, _ := os.ReadFile(path)
	structuredAfter, _ := os.ReadFile(d.StructuredPath())
	if string(tabularBefore) != string(tabularAfter) || string(structuredBefore) != string(structuredAfter) {
		t.Errorf("rejected export modified the live sinks")
	}

	// The dataset stays fully usable afterwards.
	if err := d.Append(ctx, time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC), testPosition(), nil); err != nil {
		t.Fatalf("Append after rejected export: %v", err)
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "venus_data.csv")
	d := openTestDataset(t, path)
	if err := d.Append(context.Background(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), testPosition(), nil); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("tabular sink missing: %v", err)
	}
}
