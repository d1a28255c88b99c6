package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderNoPredicates(t *testing.T) {
	b := newBuilder(postgresDialect{})

	assert.Equal(t, "", b.whereSQL())
	assert.Empty(t, b.args)
}

func TestBuilderNumbersPlaceholdersInOrder(t *testing.T) {
	b := newBuilder(postgresDialect{})
	b.where(fieldStatus, opEqual, "online")
	b.where(fieldTimestamp, opAtLeast, "2026-01-01")
	b.where(fieldTimestamp, opAtMost, "2026-02-01")

	assert.Equal(t, " WHERE status = $1 AND timestamp >= $2 AND timestamp <= $3", b.whereSQL())
	assert.Equal(t, []interface{}{"online", "2026-01-01", "2026-02-01"}, b.args)
}

func TestBuilderMySQLPlaceholders(t *testing.T) {
	b := newBuilder(mysqlDialect{})
	b.where(fieldType, opEqual, "temp")
	b.where(fieldLocation, opEqual, "library")

	assert.Equal(t, " WHERE type = ? AND location = ?", b.whereSQL())
	assert.Len(t, b.args, 2)
}

func TestBuilderArgsAlignWithClauses(t *testing.T) {
	b := newBuilder(postgresDialect{})
	b.where(fieldStatus, opEqual, "open")
	b.where(fieldSeverity, opEqual, "critical")

	assert.Equal(t, len(b.clauses), len(b.args))
}

func TestBuilderBindAppendsAfterPredicates(t *testing.T) {
	b := newBuilder(postgresDialect{})
	b.where(fieldDeviceID, opEqual, "d1")

	ph := b.bind(100)

	assert.Equal(t, "$2", ph)
	assert.Equal(t, []interface{}{"d1", 100}, b.args)
}

func TestSetBuilderEmpty(t *testing.T) {
	sb := newSetBuilder(postgresDialect{})

	assert.True(t, sb.empty())

	sb.touch("updated_at = CURRENT_TIMESTAMP")
	// A touched expression carries no caller value and must not count as an
	// update on its own.
	assert.True(t, sb.empty())
}

func TestSetBuilderRendersAssignments(t *testing.T) {
	sb := newSetBuilder(postgresDialect{})
	sb.set(fieldName, "Sensor1")
	sb.set(fieldStatus, "online")
	sb.touch("updated_at = CURRENT_TIMESTAMP")

	assert.Equal(t, "SET name = $1, status = $2, updated_at = CURRENT_TIMESTAMP", sb.setSQL())
	require.Len(t, sb.args, 2)

	ph := sb.bind("d1")
	assert.Equal(t, "$3", ph)
}
