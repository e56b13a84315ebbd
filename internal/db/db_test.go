package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerRatingStatementReturnsLatestPeriod(t *testing.T) {
	sql := preparedStatements()["player_rating"]
	require.NotEmpty(t, sql)

	// Ratings keep one row per replayed season; without ordering the
	// statement could hand back a stale prior-season row.
	assert.Contains(t, sql, "ORDER BY season DESC, week DESC")
	assert.Contains(t, sql, "LIMIT 1")
}

func TestPreparedStatementsWellFormed(t *testing.T) {
	stmts := preparedStatements()
	require.NotEmpty(t, stmts)
	for name, sql := range stmts {
		assert.NotEmpty(t, strings.TrimSpace(sql), "statement %q is empty", name)
	}
}
