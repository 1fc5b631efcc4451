package refdata

import (
	"context"
	"errors"
	"testing"
	"time"
)

var reportHeaders = []string{"Контейнер", "Номер Заказа", "Судно", "Дата прибытия", "Коносамент"}

// reportRow builds a data row for the report schema.
func reportRow(container, order, vessel, date, bill string) []string {
	return []string{container, order, vessel, date, bill}
}

func testFilter() Filter {
	return Filter{Now: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want time.Time
	}{
		{"12.03.2024", true, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"2024-03-12", true, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"12/03/2024", true, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"12.03.2024 08:30", true, time.Date(2024, 3, 12, 8, 30, 0, 0, time.UTC)},
		{"2024-03-12 08:30:15", true, time.Date(2024, 3, 12, 8, 30, 15, 0, time.UTC)},
		{"  12.03.2024  ", true, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"not a date", false, time.Time{}},
		{"", false, time.Time{}},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDigitSuffix(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"MSKU1234567", "1234567", true},
		{"MSKU 123-45.67", "1234567", true},
		{"TCLU98765432", "8765432", true},
		{"ABC123", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := DigitSuffix(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DigitSuffix(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLoadRows_ColumnMissing(t *testing.T) {
	s := New(Config{Mode: ModeReport})
	_, err := s.LoadRows(context.Background(),
		[]string{"Контейнер", "Судно", "Дата прибытия", "Коносамент"}, // no order column
		nil, testFilter())
	if !errors.Is(err, ErrColumnMissing) {
		t.Fatalf("err = %v, want ErrColumnMissing", err)
	}
}

func TestLoadRows_HeaderCaseInsensitive(t *testing.T) {
	s := New(Config{Mode: ModeReport})
	headers := []string{"КОНТЕЙНЕР", " номер заказа ", "Судно", "Дата прибытия", "Коносамент"}
	_, err := s.LoadRows(context.Background(), headers,
		[][]string{reportRow("MSKU1234567", "4500", "MSC AURA", "12.03.2024", "BL1")},
		testFilter())
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Fatalf("containers: got %d", s.Len())
	}
}

func TestLoadRows_NewestWins(t *testing.T) {
	s := New(Config{Mode: ModeReport})
	rows := [][]string{
		reportRow("MSKU1234567", "OLD", "MSC AURA", "10.03.2024", "BL 1"),
		reportRow("MSKU1234567", "NEW", "MSC AURA", "12.03.2024", "BL 1"),
	}
	stats, err := s.LoadRows(context.Background(), reportHeaders, rows, testFilter())
	if err != nil {
		t.Fatal(err)
	}

	rec := s.Container("MSKU1234567")
	if rec == nil {
		t.Fatal("record not found")
	}
	if rec.Order != "NEW" {
		t.Fatalf("order: got %q, want newest observation", rec.Order)
	}
	if rec.Bill != "BL1" {
		t.Fatalf("bill whitespace not stripped: %q", rec.Bill)
	}
	// Both observations still feed the suffix index.
	if got := len(s.RecordsBySuffix("1234567")); got != 2 {
		t.Fatalf("suffix observations: got %d, want 2", got)
	}
	if stats.ValidContainers != 2 {
		t.Fatalf("valid containers: got %d, want 2", stats.ValidContainers)
	}
	if stats.FirstValidRow != 1 || stats.LastValidRow != 2 {
		t.Fatalf("row range: got %d–%d, want 1–2", stats.FirstValidRow, stats.LastValidRow)
	}
}

func TestLoadRows_SuffixCollision(t *testing.T) {
	s := New(Config{Mode: ModeReport})
	rows := [][]string{
		reportRow("MSKU1234567", "A", "V1", "12.03.2024", ""),
		reportRow("TCLU1234567", "B", "V2", "12.03.2024", ""),
	}
	if _, err := s.LoadRows(context.Background(), reportHeaders, rows, testFilter()); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("containers: got %d, want 2", s.Len())
	}
	if got := len(s.RecordsBySuffix("1234567")); got != 2 {
		t.Fatalf("suffix bucket: got %d, want 2", got)
	}
}

func TestLoadRows_RecentHardStop(t *testing.T) {
	// Rows are scanned newest (bottom) to oldest (top). The first stale row
	// ends the scan entirely — fresh rows above it are never reached.
	s := New(Config{Mode: ModeReport})
	rows := [][]string{
		reportRow("FRSH0000001", "A", "V", "14.03.2024", ""), // above the stale row: unreachable
		reportRow("STAL0000002", "B", "V", "01.01.2023", ""), // older than 60 days: hard stop
		reportRow("FRSH0000003", "C", "V", "13.03.2024", ""),
	}
	stats, err := s.LoadRows(context.Background(), reportHeaders, rows, testFilter())
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Fatalf("containers: got %d, want 1", s.Len())
	}
	if s.Container("FRSH0000003") == nil {
		t.Fatal("bottom fresh row missing")
	}
	if s.Container("FRSH0000001") != nil {
		t.Fatal("row above the hard stop must not be reached")
	}
	if stats.ValidContainers != 1 {
		t.Fatalf("valid containers: got %d", stats.ValidContainers)
	}
}

func TestLoadRows_InvalidRowsSkipped(t *testing.T) {
	s := New(Config{Mode: ModeReport})
	rows := [][]string{
		reportRow("MSKU1234567", "A", "V", "banana", ""),  // unparseable date
		reportRow("SHORT123", "B", "V", "12.03.2024", ""), // fewer than 7 digits
		reportRow("GOOD7654321", "C", "V", "12.03.2024", ""),
	}
	if _, err := s.LoadRows(context.Background(), reportHeaders, rows, testFilter()); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 || s.Container("GOOD7654321") == nil {
		t.Fatalf("containers: got %d", s.Len())
	}
}

func TestLoadRows_PeriodBoundsInclusive(t *testing.T) {
	from := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	f := Filter{Mode: FilterPeriod, From: from, To: to}

	s := New(Config{Mode: ModeReport})
	rows := [][]string{
		reportRow("EDGE0000010", "A", "V", "10.03.2024", ""), // on From: kept
		reportRow("EDGE0000012", "B", "V", "12.03.2024", ""), // on To: kept
		reportRow("OUTS0000009", "C", "V", "09.03.2024", ""), // before From: skipped, no stop
		reportRow("OUTS0000013", "D", "V", "13.03.2024", ""), // after To: skipped, no stop
		reportRow("VERY0000001", "E", "V", "01.01.2020", ""), // ancient: still no hard stop under period
		reportRow("EDGE0000011", "F", "V", "11.03.2024", ""),
	}
	if _, err := s.LoadRows(context.Background(), reportHeaders, rows, f); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"EDGE0000010", "EDGE0000011", "EDGE0000012"} {
		if s.Container(id) == nil {
			t.Errorf("%s missing", id)
		}
	}
	if s.Len() != 3 {
		t.Fatalf("containers: got %d, want 3", s.Len())
	}
}

func TestProcess_UnitIndexCompleteness(t *testing.T) {
	s := New(Config{Mode: ModeReport, Merge: MergeByOrder})
	rows := [][]string{
		reportRow("MSKU1111111", "4500", "MSC AURA", "12.03.2024", "BL A"),
		reportRow("MSKU2222222", "4500", "MSC AURA", "12.03.2024", "BL A"),
		reportRow("MSKU3333333", "4500", "CMA RIGEL", "12.03.2024", "BL B"), // same order, other vessel
		reportRow("MSKU4444444", "4600", "", "12.03.2024", ""),              // order only, no vessel
	}
	if _, err := s.LoadRows(context.Background(), reportHeaders, rows, testFilter()); err != nil {
		t.Fatal(err)
	}
	s.Process()

	// Every loaded container with a non-empty unit key is reachable through
	// its own unit key.
	for _, id := range s.IDs() {
		rec := s.Container(id)
		unit := rec.Order
		if rec.Order != "" && rec.Vessel != "" {
			unit = rec.Order + "|" + rec.Vessel
		}
		if unit == "" {
			continue
		}
		found := false
		for _, got := range s.ContainersByUnit(unit) {
			if got == id {
				found = true
			}
		}
		if !found {
			t.Errorf("container %s not reachable via unit %q", id, unit)
		}
	}

	if got := s.ContainersByUnit("4500|MSC AURA"); len(got) != 2 {
		t.Fatalf("unit 4500|MSC AURA: got %v", got)
	}
	if got := s.ContainersByUnit("4500|CMA RIGEL"); len(got) != 1 {
		t.Fatalf("unit 4500|CMA RIGEL: got %v", got)
	}
}

func TestContainersByUnit_FallbackScan(t *testing.T) {
	s := New(Config{Mode: ModeReport, Merge: MergeByOrder})
	rows := [][]string{
		reportRow("MSKU1111111", "4500", "MSC AURA", "12.03.2024", "BL A"),
	}
	if _, err := s.LoadRows(context.Background(), reportHeaders, rows, testFilter()); err != nil {
		t.Fatal(err)
	}
	// Process deliberately not called: the lookup must fall back to the
	// linear scan instead of losing the container.
	got := s.ContainersByUnit("4500|MSC AURA")
	if len(got) != 1 || got[0] != "MSKU1111111" {
		t.Fatalf("fallback lookup: got %v", got)
	}
	// Synthesized keys with stray spaces resolve too.
	got = s.ContainersByUnit("4500 |MSC AURA")
	if len(got) != 1 {
		t.Fatalf("normalized fallback lookup: got %v", got)
	}
}

func TestContainersByUnit_MergeByBill(t *testing.T) {
	s := New(Config{Mode: ModeReport, Merge: MergeByBill})
	rows := [][]string{
		reportRow("MSKU1111111", "4500", "MSC AURA", "12.03.2024", "BL 7"),
		reportRow("MSKU2222222", "4600", "CMA RIGEL", "12.03.2024", "BL7"),
	}
	if _, err := s.LoadRows(context.Background(), reportHeaders, rows, testFilter()); err != nil {
		t.Fatal(err)
	}
	s.Process()

	got := s.ContainersByUnit("BL7")
	if len(got) != 2 {
		t.Fatalf("unit BL7: got %v", got)
	}
}

func TestProcess_EmptyUnitExcluded(t *testing.T) {
	s := New(Config{Mode: ModeReport, Merge: MergeByOrder})
	rows := [][]string{
		reportRow("MSKU1111111", "", "", "12.03.2024", ""), // no unit key at all
	}
	if _, err := s.LoadRows(context.Background(), reportHeaders, rows, testFilter()); err != nil {
		t.Fatal(err)
	}
	s.Process()

	if got := s.units[""]; len(got) != 0 {
		t.Fatalf("empty unit must not be indexed: %v", got)
	}
	// Direct lookup still works.
	if s.Container("MSKU1111111") == nil {
		t.Fatal("direct lookup lost")
	}
}

func TestLoadRows_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(Config{Mode: ModeReport})
	_, err := s.LoadRows(ctx, reportHeaders,
		[][]string{reportRow("MSKU1234567", "A", "V", "12.03.2024", "")},
		testFilter())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestLoadRows_TailBound(t *testing.T) {
	s := New(Config{Mode: ModeReport, TailRows: 2})
	rows := [][]string{
		reportRow("MSKU1111111", "A", "V", "12.03.2024", ""), // outside the tail
		reportRow("MSKU2222222", "B", "V", "12.03.2024", ""),
		reportRow("MSKU3333333", "C", "V", "12.03.2024", ""),
	}
	stats, err := s.LoadRows(context.Background(), reportHeaders, rows, testFilter())
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("containers: got %d, want 2 (tail bound)", s.Len())
	}
	if stats.FirstValidRow != 2 || stats.LastValidRow != 3 {
		t.Fatalf("row range: got %d–%d, want 2–3", stats.FirstValidRow, stats.LastValidRow)
	}

	// Period filtering never applies the tail bound.
	s2 := New(Config{Mode: ModeReport, TailRows: 2})
	f := Filter{Mode: FilterPeriod}
	if _, err := s2.LoadRows(context.Background(), reportHeaders, rows, f); err != nil {
		t.Fatal(err)
	}
	if s2.Len() != 3 {
		t.Fatalf("period containers: got %d, want 3", s2.Len())
	}
}
