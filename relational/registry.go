// Package relational supplies the schema registry consumed by slot
// extraction and query generation, plus the scoped SQL executor.
package relational

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Column describes one column with the natural-language aliases that map
// question text onto it.
type Column struct {
	Name     string   `json:"name" yaml:"name"`
	Type     string   `json:"type" yaml:"type"`
	Aliases  []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Temporal bool     `json:"temporal,omitempty" yaml:"temporal,omitempty"`
	// Location marks the column used for district/area conditions.
	Location bool `json:"location,omitempty" yaml:"location,omitempty"`
	// Numeric marks columns eligible for numeric comparison conditions.
	Numeric bool `json:"numeric,omitempty" yaml:"numeric,omitempty"`
}

// Table describes one table with its alias bank and optional sample rows
// used in LLM prompts.
type Table struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Aliases     []string   `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Columns     []Column   `json:"columns" yaml:"columns"`
	SampleRows  [][]string `json:"sample_rows,omitempty" yaml:"sample_rows,omitempty"`
}

// LocationColumn returns the column marked as the table's location field.
func (t Table) LocationColumn() (Column, bool) {
	for _, c := range t.Columns {
		if c.Location {
			return c, true
		}
	}
	return Column{}, false
}

// TemporalColumn returns the column marked as temporal.
func (t Table) TemporalColumn() (Column, bool) {
	for _, c := range t.Columns {
		if c.Temporal {
			return c, true
		}
	}
	return Column{}, false
}

// Registry holds the table definitions. Read-only after construction.
type Registry struct {
	tables  []Table
	primary string
}

// NewRegistry builds a registry; primary names the default table used when
// no alias matches a question.
func NewRegistry(tables []Table, primary string) (*Registry, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("registry requires at least one table")
	}
	found := false
	for _, t := range tables {
		if t.Name == primary {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("primary table %q not defined", primary)
	}
	return &Registry{tables: tables, primary: primary}, nil
}

// Tables returns all table definitions.
func (r *Registry) Tables() []Table { return r.tables }

// Primary returns the default table.
func (r *Registry) Primary() Table {
	for _, t := range r.tables {
		if t.Name == r.primary {
			return t
		}
	}
	return r.tables[0]
}

// Resolve finds a table by exact name.
func (r *Registry) Resolve(name string) (Table, bool) {
	for _, t := range r.tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Fingerprint is a stable hash over the canonical table/column listing, used
// as cache-key context so schema changes invalidate cached queries.
func (r *Registry) Fingerprint() string {
	var parts []string
	for _, t := range r.tables {
		cols := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			cols = append(cols, c.Name+":"+c.Type)
		}
		parts = append(parts, t.Name+"("+strings.Join(cols, ",")+")")
	}
	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, ";")))
	return hex.EncodeToString(sum[:])
}

// Describe renders a compact schema description for LLM prompts.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, t := range r.tables {
		fmt.Fprintf(&b, "Table %s", t.Name)
		if t.Description != "" {
			fmt.Fprintf(&b, " -- %s", t.Description)
		}
		b.WriteString("\n")
		for _, c := range t.Columns {
			fmt.Fprintf(&b, "  %s %s\n", c.Name, c.Type)
		}
		if len(t.SampleRows) > 0 {
			b.WriteString("  sample rows:\n")
			for _, row := range t.SampleRows {
				fmt.Fprintf(&b, "    (%s)\n", strings.Join(row, ", "))
			}
		}
	}
	return b.String()
}

// DefaultTraffic returns the registry for the road-traffic operations
// dataset: intersections, signal devices, and flow records.
func DefaultTraffic() *Registry {
	reg, err := NewRegistry([]Table{
		{
			Name:        "intersections",
			Description: "signalized intersections in the road network",
			Aliases:     []string{"intersection", "intersections", "junction", "junctions", "crossing", "crossings"},
			Columns: []Column{
				{Name: "id", Type: "INTEGER"},
				{Name: "name", Type: "TEXT", Aliases: []string{"name", "called"}},
				{Name: "district", Type: "TEXT", Location: true, Aliases: []string{"district", "districts", "area", "zone", "region"}},
				{Name: "signal_count", Type: "INTEGER", Numeric: true, Aliases: []string{"signal", "signals", "lights"}},
				{Name: "installed_at", Type: "TIMESTAMP", Temporal: true, Aliases: []string{"installed", "installation"}},
			},
			SampleRows: [][]string{
				{"1", "Main St & 5th Ave", "central", "4", "2019-03-12 00:00:00"},
				{"2", "Harbor Rd & Dock Ln", "harbor", "2", "2021-07-01 00:00:00"},
			},
		},
		{
			Name:        "devices",
			Description: "field devices: cameras, detectors, controllers",
			Aliases:     []string{"device", "devices", "camera", "cameras", "detector", "detectors", "controller", "controllers"},
			Columns: []Column{
				{Name: "id", Type: "INTEGER"},
				{Name: "kind", Type: "TEXT", Aliases: []string{"kind", "type"}},
				{Name: "status", Type: "TEXT", Aliases: []string{"status", "state", "online", "offline", "faulty"}},
				{Name: "district", Type: "TEXT", Location: true, Aliases: []string{"district", "area", "zone"}},
				{Name: "last_seen", Type: "TIMESTAMP", Temporal: true, Aliases: []string{"last seen", "heartbeat"}},
			},
			SampleRows: [][]string{
				{"10", "camera", "online", "central", "2024-02-01 08:00:00"},
			},
		},
		{
			Name:        "flow_records",
			Description: "hourly traffic volume and speed measurements",
			Aliases:     []string{"flow", "traffic", "volume", "measurements", "readings"},
			Columns: []Column{
				{Name: "id", Type: "INTEGER"},
				{Name: "intersection_id", Type: "INTEGER"},
				{Name: "volume", Type: "INTEGER", Numeric: true, Aliases: []string{"volume", "vehicles", "cars", "count of vehicles"}},
				{Name: "avg_speed", Type: "REAL", Numeric: true, Aliases: []string{"speed", "velocity"}},
				{Name: "recorded_at", Type: "TIMESTAMP", Temporal: true, Aliases: []string{"recorded", "measured", "time"}},
			},
		},
	}, "intersections")
	if err != nil {
		panic(err) // static definition, cannot fail
	}
	return reg
}
