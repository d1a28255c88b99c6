package store

import (
	"fmt"
	"strings"
)

// dialect abstracts the SQL differences between the supported backends.
type dialect interface {
	// placeholder renders the n-th (1-based) positional parameter.
	placeholder(n int) string
	// quote escapes an identifier that collides with a keyword.
	quote(ident string) string
	// returning reports whether INSERT/UPDATE ... RETURNING is available.
	returning() bool
}

// field identifies a column that may appear in a generated predicate or
// assignment. Query text is only ever assembled from the tables below, so
// caller input cannot reach it; values travel exclusively as bound
// arguments.
type field int

const (
	fieldDeviceID field = iota
	fieldName
	fieldType
	fieldLocation
	fieldMetadata
	fieldStatus
	fieldBuilding
	fieldFloor
	fieldMetric
	fieldTimestamp
	fieldSeverity
	fieldAcknowledgedBy
	fieldNotes
)

var columns = map[field]string{
	fieldDeviceID:       "device_id",
	fieldName:           "name",
	fieldType:           "type",
	fieldLocation:       "location",
	fieldMetadata:       "metadata",
	fieldStatus:         "status",
	fieldBuilding:       "building",
	fieldFloor:          "floor",
	fieldMetric:         "metric",
	fieldTimestamp:      "timestamp",
	fieldSeverity:       "severity",
	fieldAcknowledgedBy: "acknowledged_by",
	fieldNotes:          "notes",
}

// op is a comparison shape.
type op int

const (
	opEqual op = iota
	opAtLeast
	opAtMost
)

var operators = map[op]string{
	opEqual:   "=",
	opAtLeast: ">=",
	opAtMost:  "<=",
}

// builder accumulates AND-combined predicates over the enumerated fields,
// keeping the clause list and the bound-argument list index-aligned.
type builder struct {
	d       dialect
	clauses []string
	args    []interface{}
}

func newBuilder(d dialect) *builder {
	return &builder{d: d}
}

// where appends one predicate with its bound value.
func (b *builder) where(f field, o op, value interface{}) *builder {
	b.args = append(b.args, value)
	b.clauses = append(b.clauses,
		fmt.Sprintf("%s %s %s", columns[f], operators[o], b.d.placeholder(len(b.args))))
	return b
}

// whereSQL renders the WHERE fragment, or an empty string when no predicate
// was added.
func (b *builder) whereSQL() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

// bind appends a non-predicate bound value, such as a LIMIT, and returns its
// placeholder.
func (b *builder) bind(value interface{}) string {
	b.args = append(b.args, value)
	return b.d.placeholder(len(b.args))
}

// setBuilder accumulates SET assignments for a partial update. Fields the
// caller did not mention are simply never added.
type setBuilder struct {
	d    dialect
	sets []string
	args []interface{}
}

func newSetBuilder(d dialect) *setBuilder {
	return &setBuilder{d: d}
}

// set appends one column assignment with its bound value.
func (s *setBuilder) set(f field, value interface{}) {
	s.args = append(s.args, value)
	s.sets = append(s.sets, fmt.Sprintf("%s = %s", columns[f], s.d.placeholder(len(s.args))))
}

// touch appends a fixed assignment that carries no caller value, e.g.
// updated_at = CURRENT_TIMESTAMP.
func (s *setBuilder) touch(expr string) {
	s.sets = append(s.sets, expr)
}

// empty reports whether no caller-supplied assignment was added.
func (s *setBuilder) empty() bool {
	return len(s.args) == 0
}

// setSQL renders the SET fragment.
func (s *setBuilder) setSQL() string {
	return "SET " + strings.Join(s.sets, ", ")
}

// bind appends a non-assignment bound value, such as the row key in the
// WHERE clause, and returns its placeholder.
func (s *setBuilder) bind(value interface{}) string {
	s.args = append(s.args, value)
	return s.d.placeholder(len(s.args))
}
