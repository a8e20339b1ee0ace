package mysql_test

import (
	"strings"
	"testing"
	"time"
	"videogen/customer"
	"videogen/gen"
	"videogen/sink/mysql"
	"videogen/title"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func columns(t *testing.T, query string) string {
	t.Helper()
	i := strings.Index(query, "\nvalues (")
	require.Positive(t, i, query)
	return query[:i]
}

func TestTitleStatementUsesBacktickQuoting(t *testing.T) {
	titles, err := title.NewGenerator(gen.NewRng(1), now).Generate(5)
	require.NoError(t, err)

	for i := range titles {
		query := mysql.Statement(&titles[i])
		cols := columns(t, query)
		assert.NotContains(t, cols, `"`)
		assert.Contains(t, cols, "`cast`")
	}
}

func TestStatementFallsBackToPostgresSyntax(t *testing.T) {
	customers, err := customer.NewGenerator(gen.NewRng(1), now).Generate(3)
	require.NoError(t, err)

	c := &customers[0]
	assert.Equal(t, c.ToPostgresSql(), mysql.Statement(c))
	assert.NotContains(t, columns(t, mysql.Statement(c)), `"`)
}
