package abook

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	sqliteMatchQuery       string = "insert into matches (id, connection_id, occurred_at, mail_from, mail_to, labels, elapse) values (?, ?, ?, ?, ?, ?, ?)"
	sqliteMatchCreateTable string = `
	create table if not exists matches (
    id text primary key,
    connection_id text,
    mail_from text,
    mail_to text,
    labels text,
    occurred_at datetime default CURRENT_TIMESTAMP,
    elapse integer
	)`
)

type HookSqlite struct {
	pool *sql.DB // Database connection pool.
}

func (h *HookSqlite) Name() string {
	return "sqlite"
}

func (h *HookSqlite) conn() (*sql.DB, error) {
	if h.pool != nil {
		return h.pool, nil
	}

	dsn := os.Getenv("AUDIT_DSN")
	if len(dsn) == 0 {
		return nil, fmt.Errorf("missing dsn for sqlite, please set `AUDIT_DSN`")
	}

	var err error
	h.pool, err = sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open error: %s(%#v)\n", err.Error(), err)
	}

	return h.pool, nil
}

func (h *HookSqlite) AfterInit() {
	conn, err := h.conn()
	if err != nil {
		fmt.Printf("[%s] %s\n", h.Name(), err)
		return
	}

	_, err = conn.Exec(sqliteMatchCreateTable)
	if err != nil {
		fmt.Printf("[%s] db exec error: %s\n", h.Name(), err)
	}
}

func (h *HookSqlite) AfterMatch(d *AfterMatchData) {
	conn, err := h.conn()
	if err != nil {
		fmt.Printf("[%s] %s\n", h.Name(), err)
		return
	}

	_, err = conn.Exec(
		sqliteMatchQuery,
		GenID().String(),
		d.ConnID,
		d.OccurredAt.Format(TimeFormat),
		d.MailFrom,
		strings.Join(d.MailTo, ","),
		strings.Join(d.Labels, ","),
		int64(d.Elapse),
	)
	if err != nil {
		fmt.Printf("[%s] db exec error: %s\n", h.Name(), err)
	}
}
