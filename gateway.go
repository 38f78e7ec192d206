package abook

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

const bookQuery string = "select distinct cg.name from contacts as c" +
	" join contactgroupmembers as cgm on cgm.contact_id = c.contact_id" +
	" join contactgroups as cg on cg.contactgroup_id = cgm.contactgroup_id" +
	" join users as u on u.user_id = c.user_id" +
	" where u.username = ? and c.vcard like ? and c.del = 0 and cg.del = 0"

// Gateway is the one capability the matcher needs from the Roundcube
// datastore: the names of the owner's address books whose contact records
// contain the sample text. Implementations must be safe for concurrent use.
type Gateway interface {
	FindBooks(owner, sample string) ([]string, error)
}

type DBGateway struct {
	pool *sql.DB // Database connection pool.
}

func NewDBGateway(pool *sql.DB) *DBGateway {
	return &DBGateway{pool: pool}
}

func (g *DBGateway) FindBooks(owner, sample string) ([]string, error) {
	rows, err := g.pool.Query(bookQuery, owner, "%"+sample+"%")
	if err != nil {
		return nil, fmt.Errorf("book query error: %s", err)
	}
	defer rows.Close()

	var books []string
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("book scan error: %s", err)
		}
		books = append(books, name.String)
	}
	return books, rows.Err()
}
