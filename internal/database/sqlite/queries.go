package sqlite

// SQL queries for SQLite catalog introspection.
const (
	queryListTables = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	queryTableExists = `
		SELECT COUNT(*)
		FROM sqlite_master
		WHERE type = 'table'
		  AND name = ?`
)
