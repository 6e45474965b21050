package nlsql

import (
	"fmt"
	"strings"

	"github.com/citypulse/trafficqa/schema"
)

// Render turns a slot set into SQL text. The clause order is fixed:
// SELECT ... FROM ... WHERE ... GROUP BY ... ORDER BY ... LIMIT.
func Render(slots schema.SlotSet) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(selectList(slots))
	b.WriteString(" FROM ")
	b.WriteString(slots.Table)

	if len(slots.Conditions) > 0 {
		parts := make([]string, 0, len(slots.Conditions))
		for _, c := range slots.Conditions {
			parts = append(parts, fmt.Sprintf("%s %s '%s'", c.Column, string(c.Operator), escapeValue(c.Value)))
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(parts, " AND "))
	}
	if len(slots.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(slots.GroupBy, ", "))
	}
	if len(slots.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(slots.OrderBy, ", "))
		if slots.Kind == schema.KindMax {
			b.WriteString(" DESC")
		}
	}
	if slots.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", slots.Limit)
	}
	return b.String()
}

// selectList renders the projection. Count is always COUNT(*); the other
// aggregations wrap the first resolved column, or the wildcard when no
// column resolved.
func selectList(slots schema.SlotSet) string {
	switch slots.Kind {
	case schema.KindCount:
		if len(slots.GroupBy) > 0 {
			return strings.Join(slots.GroupBy, ", ") + ", COUNT(*)"
		}
		return "COUNT(*)"
	case schema.KindSum, schema.KindAvg, schema.KindMax, schema.KindMin:
		col := "*"
		if len(slots.Columns) > 0 {
			col = slots.Columns[0]
		}
		fn := aggregateFunc(slots.Kind)
		agg := fmt.Sprintf("%s(%s)", fn, col)
		if len(slots.GroupBy) > 0 {
			return strings.Join(slots.GroupBy, ", ") + ", " + agg
		}
		return agg
	default:
		if len(slots.Columns) == 0 {
			return "*"
		}
		return strings.Join(slots.Columns, ", ")
	}
}

func aggregateFunc(kind schema.QueryKind) string {
	switch kind {
	case schema.KindSum:
		return "SUM"
	case schema.KindAvg:
		return "AVG"
	case schema.KindMax:
		return "MAX"
	case schema.KindMin:
		return "MIN"
	default:
		return "COUNT"
	}
}

// escapeValue doubles single quotes so rendered literals stay inside their
// quoting.
func escapeValue(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
