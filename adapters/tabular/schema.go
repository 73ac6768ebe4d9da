// Package tabular reads the typed CSV input tables into a working set and
// writes the result tables back out.
//
// Every input table has a declared column schema. Rows failing validation
// are rejected individually with a warning; a table that cannot be opened or
// parsed at all fails ingestion. The engine itself never sees raw text.
package tabular

import (
	"strconv"
	"strings"
	"time"

	"egu-projection/internal/errors"
)

// ColType is the declared type of one schema column
type ColType int

const (
	// Identifier is a non-empty free-form key field
	Identifier ColType = iota

	// Int is a whole number
	Int

	// Float is a decimal number
	Float

	// Date is a "YYYY-MM-DD" calendar date
	Date

	// Enum is a value from a fixed set, matched case-insensitively
	Enum
)

// Column declares one schema column
type Column struct {
	Name string
	Type ColType

	// Required rejects rows where the field is blank
	Required bool

	// Min and Max bound numeric values inclusively; nil means unbounded
	Min *float64
	Max *float64

	// Values is the allowed set for Enum columns
	Values []string
}

// Schema declares one input table
type Schema struct {
	Table   string
	Columns []Column
}

// Row is one validated record. Accessors return the zero value with ok=false
// for blank optional fields; validation has already rejected anything
// malformed.
type Row struct {
	schema *Schema
	line   int
	fields []string
}

// Line is the 1-based source line of the row
func (r *Row) Line() int {
	return r.line
}

// String returns a field by column index, trimmed
func (r *Row) String(i int) string {
	return strings.TrimSpace(r.fields[i])
}

// Float returns a numeric field; ok is false when the field is blank
func (r *Row) Float(i int) (float64, bool) {
	s := r.String(i)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Int returns a whole-number field; ok is false when the field is blank
func (r *Row) Int(i int) (int, bool) {
	s := r.String(i)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Date returns a date field; ok is false when the field is blank
func (r *Row) Date(i int) (time.Time, bool) {
	s := r.String(i)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FloatPtr returns a pointer to a numeric field, or nil when blank
func (r *Row) FloatPtr(i int) *float64 {
	if v, ok := r.Float(i); ok {
		return &v
	}
	return nil
}

// IntPtr returns a pointer to a whole-number field, or nil when blank
func (r *Row) IntPtr(i int) *int {
	if v, ok := r.Int(i); ok {
		return &v
	}
	return nil
}

// Bool reports whether a field holds a truthy marker
func (r *Row) Bool(i int) bool {
	switch strings.ToLower(r.String(i)) {
	case "y", "yes", "true", "1":
		return true
	}
	return false
}

// List splits a semicolon-separated field into trimmed entries
func (r *Row) List(i int) []string {
	s := r.String(i)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validate checks one raw record against the schema
func (s *Schema) validate(fields []string) error {
	if len(fields) != len(s.Columns) {
		return errors.Newf(errors.TypeIngest, "%s: expected %d fields, got %d", s.Table, len(s.Columns), len(fields))
	}
	for i, col := range s.Columns {
		v := strings.TrimSpace(fields[i])
		if v == "" {
			if col.Required {
				return errors.Newf(errors.TypeIngest, "%s: %s is required", s.Table, col.Name)
			}
			continue
		}
		switch col.Type {
		case Int:
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.Newf(errors.TypeIngest, "%s: %s %q is not a whole number", s.Table, col.Name, v)
			}
			if err := col.checkRange(float64(n)); err != nil {
				return err
			}
		case Float:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return errors.Newf(errors.TypeIngest, "%s: %s %q is not a number", s.Table, col.Name, v)
			}
			if err := col.checkRange(f); err != nil {
				return err
			}
		case Date:
			if _, err := time.Parse("2006-01-02", v); err != nil {
				return errors.Newf(errors.TypeIngest, "%s: %s %q is not a YYYY-MM-DD date", s.Table, col.Name, v)
			}
		case Enum:
			ok := false
			for _, allowed := range col.Values {
				if strings.EqualFold(v, allowed) {
					ok = true
					break
				}
			}
			if !ok {
				return errors.Newf(errors.TypeIngest, "%s: %s %q is not one of %s", s.Table, col.Name, v, strings.Join(col.Values, "/"))
			}
		}
	}
	return nil
}

func (c *Column) checkRange(v float64) error {
	if c.Min != nil && v < *c.Min {
		return errors.Newf(errors.TypeIngest, "%s: %g below minimum %g", c.Name, v, *c.Min)
	}
	if c.Max != nil && v > *c.Max {
		return errors.Newf(errors.TypeIngest, "%s: %g above maximum %g", c.Name, v, *c.Max)
	}
	return nil
}

func fptr(v float64) *float64 { return &v }
