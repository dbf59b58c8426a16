package cassandra

import (
	"fmt"

	"lwt/internal/lwt"
)

const (
	templateDropKeyspace   = `DROP KEYSPACE IF EXISTS %s`
	templateCreateKeyspace = `CREATE KEYSPACE %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': '%d'}`
	templateCreateTable    = `CREATE TABLE %s (user_id text PRIMARY KEY, first text, last text, city text, email text)`

	templateInsert = `INSERT INTO %s (user_id, first, last, city, email) VALUES (?, ?, ?, ?, ?)`
	templateSelect = `SELECT user_id, first, last, city, email FROM %s WHERE user_id = ?`
	templateUpdate = `UPDATE %s SET email = ? WHERE user_id = ?`

	templateUpdateIf = `UPDATE %s SET email = ? WHERE user_id = ? IF email = ?`
)

// statements holds the CQL rendered for one schema.
type statements struct {
	dropKeyspace   string
	createKeyspace string
	createTable    string
	insert         string
	selectRecord   string
	update         string
	updateIf       string
}

func newStatements(schema lwt.Schema) statements {
	table := schema.QualifiedTable()

	return statements{
		dropKeyspace:   fmt.Sprintf(templateDropKeyspace, schema.Namespace),
		createKeyspace: fmt.Sprintf(templateCreateKeyspace, schema.Namespace, schema.ReplicationFactor),
		createTable:    fmt.Sprintf(templateCreateTable, table),
		insert:         fmt.Sprintf(templateInsert, table),
		selectRecord:   fmt.Sprintf(templateSelect, table),
		update:         fmt.Sprintf(templateUpdate, table),
		updateIf:       fmt.Sprintf(templateUpdateIf, table),
	}
}
