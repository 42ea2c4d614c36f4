package mysql

import "fmt"

type queries struct {
	selectValue string
	upsert      string
}

func newQueries(table string) queries {
	return queries{
		selectValue: fmt.Sprintf("SELECT v FROM %s WHERE k = ?", table),
		upsert: fmt.Sprintf(
			"INSERT INTO %s (k, v, updated_at) VALUES (?, ?, ?) AS new "+
				"ON DUPLICATE KEY UPDATE v = new.v, updated_at = new.updated_at",
			table,
		),
	}
}
