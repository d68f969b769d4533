package postgres

// SQL queries for PostgreSQL metadata introspection. Everything is scoped
// to the session's current schema.
const (
	queryListTables = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	queryTableExists = `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = current_schema()
			  AND table_name = $1
		)`

	queryGetColumns = `
		SELECT c.column_name, c.data_type
		FROM information_schema.columns c
		WHERE c.table_schema = current_schema()
		  AND c.table_name = $1
		ORDER BY c.ordinal_position`
)
