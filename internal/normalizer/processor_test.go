package normalizer

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"outlierx/internal/config"
	"outlierx/internal/models"
)

func bettingSchema(t *testing.T) *models.Schema {
	t.Helper()

	return &models.Schema{
		Fields: []models.FieldSchema{
			{Name: "event_id", Type: models.TypeString},
			{Name: "event_date", Type: models.TypeTimestamp},
			{Name: "sport", Type: models.TypeString},
			{Name: "odds", Type: models.TypeFloat},
			{Name: "stake", Type: models.TypeFloat, Nullable: true},
			{Name: "line", Type: models.TypeFloat, Default: 0.0},
			{Name: "live", Type: models.TypeBoolean, Nullable: true},
		},
		Normalization: []models.NormalizationDirective{
			{Field: "event_date", Kind: models.TransformTimestamp},
			{Field: "sport", Kind: models.TransformString, Case: models.CaseLower},
			{Field: "odds", Kind: models.TransformOdds, OddsFormat: models.OddsAmerican},
			{Field: "stake", Kind: models.TransformCurrency},
			{Field: "line", Kind: models.TransformNumeric, DecimalPlaces: models.Int(1)},
			{Field: "live", Kind: models.TransformBoolean},
		},
	}
}

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()

	p, err := NewProcessor(bettingSchema(t))
	if err != nil {
		t.Fatalf("NewProcessor returned unexpected error: %v", err)
	}

	return p
}

func TestNewProcessor(t *testing.T) {
	p := newTestProcessor(t)
	if p.Schema() == nil {
		t.Fatal("Schema returned nil")
	}
}

func TestNewProcessor_Errors(t *testing.T) {
	if _, err := NewProcessor(nil); !errors.Is(err, models.ErrEmptySchema) {
		t.Errorf("NewProcessor(nil) error = %v, want ErrEmptySchema", err)
	}

	schema := bettingSchema(t)
	schema.Normalization = append(schema.Normalization, models.NormalizationDirective{Field: "odds", Kind: "morse"})

	_, err := NewProcessor(schema)

	var uerr *UnsupportedTransformationError
	if !errors.As(err, &uerr) {
		t.Errorf("NewProcessor error = %v, want UnsupportedTransformationError", err)
	}

	schema = bettingSchema(t)
	schema.Normalization = append(schema.Normalization, models.NormalizationDirective{Field: "ghost", Kind: models.TransformString})

	if _, err := NewProcessor(schema); !errors.Is(err, models.ErrUnknownField) {
		t.Errorf("NewProcessor error = %v, want ErrUnknownField", err)
	}
}

func TestProcessor_NormalizeRow(t *testing.T) {
	p := newTestProcessor(t)

	raw := models.Record{
		"event_id":   "evt-1",
		"event_date": "2024-03-01 12:30:00",
		"sport":      " Basketball ",
		"odds":       "+150",
		"stake":      "$1,000",
		"line":       -3.55,
		"live":       "no",
		"bookmaker":  "DraftKings",
	}

	got, failures := p.NormalizeRow(raw)
	if len(failures) != 0 {
		t.Fatalf("NormalizeRow returned failures: %v", failures)
	}

	want := models.Record{
		"event_id":   "evt-1",
		"event_date": time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		"sport":      "basketball",
		"odds":       models.DecimalOdds(2.5),
		"stake":      1000.0,
		"line":       -3.6,
		"live":       false,
		"bookmaker":  "DraftKings",
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeRow =\n%#v\nwant\n%#v", got, want)
	}

	if raw["sport"] != " Basketball " {
		t.Error("NormalizeRow mutated its input")
	}
}

func TestProcessor_NormalizeRow_FailureKeepsValue(t *testing.T) {
	p := newTestProcessor(t)

	got, failures := p.NormalizeRow(models.Record{
		"event_id":   "evt-2",
		"event_date": "not a date",
		"sport":      "NFL",
		"odds":       "+50",
	})

	if len(failures) != 2 {
		t.Fatalf("NormalizeRow returned %d failures, want 2: %v", len(failures), failures)
	}

	if failures[0].Field != "event_date" || failures[1].Field != "odds" {
		t.Errorf("failures out of field order: %v", failures)
	}

	if !errors.Is(failures[1], ErrOddsFormat) {
		t.Errorf("odds failure = %v, want ErrOddsFormat", failures[1])
	}

	if got["event_date"] != "not a date" || got["odds"] != "+50" {
		t.Errorf("failed fields not retained: %v", got)
	}

	if got["sport"] != "nfl" {
		t.Errorf("sport = %v, want nfl", got["sport"])
	}

	if failures[0].Row != -1 {
		t.Errorf("Row = %d, want -1 outside a table", failures[0].Row)
	}
}

func TestProcessor_NormalizeRow_Defaults(t *testing.T) {
	p := newTestProcessor(t)

	got, failures := p.NormalizeRow(models.Record{"event_id": "evt-3", "line": nil})
	if len(failures) != 0 {
		t.Fatalf("NormalizeRow returned failures: %v", failures)
	}

	if got["line"] != 0.0 {
		t.Errorf("line = %#v, want default 0.0", got["line"])
	}

	if _, ok := got["stake"]; ok {
		t.Error("absent nullable field without default should stay absent")
	}
}

func TestProcessor_NormalizeRow_Idempotent(t *testing.T) {
	p := newTestProcessor(t)

	rows := []models.Record{
		{
			"event_id":   "evt-1",
			"event_date": 1709296200,
			"sport":      "Hockey",
			"odds":       -110,
			"stake":      "25 USD",
			"line":       "1.25",
			"live":       "on",
		},
		{
			"event_id":   "evt-2",
			"event_date": "garbage",
			"odds":       "EVEN",
			"stake":      nil,
		},
	}

	for _, row := range rows {
		once, _ := p.NormalizeRow(row)
		twice, _ := p.NormalizeRow(once)

		if !reflect.DeepEqual(once, twice) {
			t.Errorf("normalization not idempotent:\nonce  %#v\ntwice %#v", once, twice)
		}
	}
}

func TestProcessor_NormalizeTable(t *testing.T) {
	p := newTestProcessor(t)

	table := models.Table{
		{"event_id": "a", "odds": "+200"},
		{"event_id": "b", "odds": "10"},
		{"event_id": "c", "odds": "-150", "live": "perhaps"},
		{"event_id": "d", "odds": "-150", "event_date": "soon", "live": "perhaps"},
	}

	got, ledger := p.NormalizeTable(table)
	if len(got) != len(table) {
		t.Fatalf("NormalizeTable returned %d rows, want %d", len(got), len(table))
	}

	if len(ledger) != 4 {
		t.Fatalf("ledger has %d entries, want 4: %v", len(ledger), ledger)
	}

	if rows := ledger.Rows(); !reflect.DeepEqual(rows, []int{1, 2, 3}) {
		t.Errorf("Rows = %v, want [1 2 3]", rows)
	}

	counts := ledger.CountByField()
	if counts["odds"] != 1 || counts["live"] != 2 || counts["event_date"] != 1 {
		t.Errorf("CountByField = %v", counts)
	}

	if got[0]["odds"] != models.DecimalOdds(3) {
		t.Errorf("row 0 odds = %v, want 3.0", got[0]["odds"])
	}
}

func TestProcessor_DefaultSchemaVolume(t *testing.T) {
	schema := config.DefaultSchema()

	p, err := NewProcessor(&schema)
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}

	tests := []struct {
		value any
		want  float64
	}{
		{value: "$1,200", want: 1200},
		{value: "€1,200", want: 1200},
		{value: "£50", want: 50},
		{value: "-$5", want: -5},
		{value: "75.5 EUR", want: 75.5},
	}

	for _, tt := range tests {
		out, failures := p.NormalizeRow(models.Record{"volume": tt.value})
		if len(failures) > 0 {
			t.Errorf("volume %v: unexpected failures %v", tt.value, failures)

			continue
		}

		if out["volume"] != tt.want {
			t.Errorf("volume %v = %v, want %v", tt.value, out["volume"], tt.want)
		}
	}
}
