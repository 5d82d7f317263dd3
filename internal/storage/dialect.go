package storage

import (
	"strconv"
	"strings"
)

// Dialect captures what differs between the SQL backends.
type Dialect struct {
	Name       string // golang-migrate database name and sql driver name
	Migrations string // directory under migrations/
	positional bool   // $1, $2 instead of ?
}

var (
	SQLite   = Dialect{Name: "sqlite", Migrations: "migrations/sqlite"}
	Postgres = Dialect{Name: "postgres", Migrations: "migrations/postgres", positional: true}
)

// Rebind rewrites ? placeholders for dialects that number them. Queries in
// this package never contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if !d.positional {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
