package store

import (
	"strconv"
	"strings"
)

// dialect captures the few places Postgres and SQLite differ
type dialect struct {
	games       string
	predictions string
	numbered    bool
	dateExpr    func(col string) string
}

// rebind rewrites ? placeholders to $1, $2, ... for drivers that need them
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)
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

// table substitutes the {games} and {predictions} placeholders
func (d dialect) table(query string) string {
	return strings.NewReplacer("{games}", d.games, "{predictions}", d.predictions).Replace(query)
}

func (d dialect) q(query string) string {
	return d.rebind(d.table(query))
}
