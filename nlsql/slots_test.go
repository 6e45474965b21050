package nlsql

import (
	"testing"

	"github.com/citypulse/trafficqa/relational"
	"github.com/citypulse/trafficqa/schema"
)

func TestExtract_CountByDistrict(t *testing.T) {
	e := NewExtractor(relational.DefaultTraffic(), nil)

	slots := e.Extract("How many intersections are in district North?")

	if slots.Kind != schema.KindCount {
		t.Fatalf("expected count kind, got %s", slots.Kind)
	}
	if slots.Table != "intersections" {
		t.Fatalf("expected intersections table, got %s", slots.Table)
	}
	if slots.Confidence <= 0.7 {
		t.Fatalf("expected fast-path confidence, got %f", slots.Confidence)
	}
	if len(slots.Conditions) != 1 {
		t.Fatalf("expected one condition, got %+v", slots.Conditions)
	}
	c := slots.Conditions[0]
	if c.Column != "district" || c.Operator != schema.OpLike || c.Value != "%North%" {
		t.Fatalf("unexpected condition %+v", c)
	}
}

func TestExtract_IsDeterministic(t *testing.T) {
	e := NewExtractor(relational.DefaultTraffic(), nil)

	q := "average speed per district since 2023"
	first := e.Extract(q)
	for i := 0; i < 5; i++ {
		if got := e.Extract(q); got.Confidence != first.Confidence || got.Table != first.Table {
			t.Fatalf("extraction not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestExtract_TableFallsBackToPrimary(t *testing.T) {
	e := NewExtractor(relational.DefaultTraffic(), nil)

	slots := e.Extract("show me everything")
	if slots.Table != "intersections" {
		t.Fatalf("expected primary table fallback, got %s", slots.Table)
	}
	if len(slots.Columns) != 1 || slots.Columns[0] != "*" {
		t.Fatalf("expected wildcard columns, got %v", slots.Columns)
	}
	if slots.Confidence > 0.3 {
		t.Fatalf("expected low confidence without hits, got %f", slots.Confidence)
	}
}

func TestExtract_KindFamilies(t *testing.T) {
	e := NewExtractor(relational.DefaultTraffic(), nil)

	cases := []struct {
		question string
		kind     schema.QueryKind
	}{
		{"how many cameras are online", schema.KindCount},
		{"number of junctions in zone harbor", schema.KindCount},
		{"total volume of traffic", schema.KindSum},
		{"average speed on flow readings", schema.KindAvg},
		{"highest volume recorded", schema.KindMax},
		{"lowest speed measured", schema.KindMin},
		{"list the devices", schema.KindSelect},
	}
	for _, tc := range cases {
		if slots := e.Extract(tc.question); slots.Kind != tc.kind {
			t.Errorf("%q: expected %s, got %s", tc.question, tc.kind, slots.Kind)
		}
	}
}

func TestExtract_Modifiers(t *testing.T) {
	e := NewExtractor(relational.DefaultTraffic(), nil)

	slots := e.Extract("top 5 intersections by district")
	if slots.Limit != 5 {
		t.Fatalf("expected limit 5, got %d", slots.Limit)
	}
	if len(slots.GroupBy) != 1 || slots.GroupBy[0] != "district" {
		t.Fatalf("expected group by district, got %v", slots.GroupBy)
	}
}

func TestExtract_NumericComparison(t *testing.T) {
	e := NewExtractor(relational.DefaultTraffic(), nil)

	slots := e.Extract("intersections with more than 3 signals")
	found := false
	for _, c := range slots.Conditions {
		if c.Column == "signal_count" && c.Operator == schema.OpGt && c.Value == "3" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected signal_count > 3 condition, got %+v", slots.Conditions)
	}
}

func TestRender_CountWithLocation(t *testing.T) {
	sql := Render(schema.SlotSet{
		Kind:    schema.KindCount,
		Table:   "intersections",
		Columns: []string{"district"},
		Conditions: []schema.Condition{
			{Column: "district", Operator: schema.OpLike, Value: "%North%"},
		},
	})
	want := "SELECT COUNT(*) FROM intersections WHERE district LIKE '%North%'"
	if sql != want {
		t.Fatalf("expected %q, got %q", want, sql)
	}
}

func TestRender_ClauseOrder(t *testing.T) {
	sql := Render(schema.SlotSet{
		Kind:    schema.KindAvg,
		Table:   "flow_records",
		Columns: []string{"avg_speed"},
		Conditions: []schema.Condition{
			{Column: "volume", Operator: schema.OpGt, Value: "100"},
		},
		GroupBy: []string{"intersection_id"},
		OrderBy: []string{"intersection_id"},
		Limit:   10,
	})
	want := "SELECT intersection_id, AVG(avg_speed) FROM flow_records WHERE volume > '100' GROUP BY intersection_id ORDER BY intersection_id LIMIT 10"
	if sql != want {
		t.Fatalf("expected %q, got %q", want, sql)
	}
}

func TestRender_EscapesQuotes(t *testing.T) {
	sql := Render(schema.SlotSet{
		Kind:  schema.KindSelect,
		Table: "intersections",
		Conditions: []schema.Condition{
			{Column: "name", Operator: schema.OpEq, Value: "O'Hare"},
		},
	})
	if sql != "SELECT * FROM intersections WHERE name = 'O''Hare'" {
		t.Fatalf("unexpected render %q", sql)
	}
	if err := Validate(sql); err != nil {
		t.Fatalf("escaped statement should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		sql string
		ok  bool
	}{
		{"SELECT * FROM intersections", true},
		{"select count(*) from devices", true},
		{"WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"", false},
		{"EXPLAIN SELECT 1", false},
		{"SELECT * FROM t WHERE name = 'broken", false},
		{"SELECT COUNT(* FROM t", false},
		{"SELECT 1))", false},
	}
	for _, tc := range cases {
		err := Validate(tc.sql)
		if tc.ok && err != nil {
			t.Errorf("%q: unexpected error %v", tc.sql, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%q: expected rejection", tc.sql)
		}
	}
}

func TestSanitizeSQL(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"```sql\nSELECT 1\n```", "SELECT 1"},
		{"Here is the query:\nSELECT * FROM devices;", "SELECT * FROM devices"},
		{"  SELECT 1;  ", "SELECT 1"},
		{"SELECT 1", "SELECT 1"},
	}
	for _, tc := range cases {
		if got := SanitizeSQL(tc.raw); got != tc.want {
			t.Errorf("SanitizeSQL(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
