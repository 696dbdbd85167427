package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/smallbiznis/shelfwise/pkg/db"
	"github.com/smallbiznis/shelfwise/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestRunAutoMigratesSQLite(t *testing.T) {
	conn := dbtest.Open(t)

	require.NoError(t, Run(conn, db.Config{Type: "sqlite"}))

	for _, table := range []string{"books", "book_authors", "stock_transactions", "members", "transactions", "invoices", "invoice_payments", "audit_logs"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestRunRequiresConnection(t *testing.T) {
	assert.Error(t, Run(nil, db.Config{Type: "sqlite"}))
}
