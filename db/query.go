package db

import (
	"fmt"
	"strings"

	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/paging"
)

// SelectBuilder assembles a SELECT over one audited table. The soft-delete
// predicate on the base table is added automatically; a caller must opt out
// through audit.Scope to see deleted rows. Conditions use `?` placeholders which
// are renumbered to $1..$n in the order they were added.
type SelectBuilder struct {
	table   string
	alias   string
	columns string
	scope   audit.Scope
	joins   []string
	where   []string
	args    []interface{}
	orderBy string
	page    *paging.Request
}

// Select starts a query over table with alias.
func Select(table, alias string) *SelectBuilder {
	return &SelectBuilder{table: table, alias: alias, columns: alias + ".*"}
}

// Columns sets the select list.
func (q *SelectBuilder) Columns(cols string) *SelectBuilder {
	q.columns = cols
	return q
}

// Scope decides whether soft-deleted base rows are returned.
func (q *SelectBuilder) Scope(scope audit.Scope) *SelectBuilder {
	q.scope = scope
	return q
}

// Join adds a join clause. Joined audited tables are filtered with JoinActive.
func (q *SelectBuilder) Join(clause string, args ...interface{}) *SelectBuilder {
	q.joins = append(q.joins, q.bind(clause, args))
	return q
}

// Where adds an AND-ed condition.
func (q *SelectBuilder) Where(cond string, args ...interface{}) *SelectBuilder {
	q.where = append(q.where, q.bind(cond, args))
	return q
}

// OrderBy sets the ORDER BY clause. Callers include a unique tiebreaker.
func (q *SelectBuilder) OrderBy(order string) *SelectBuilder {
	q.orderBy = order
	return q
}

// Page limits the result window.
func (q *SelectBuilder) Page(req paging.Request) *SelectBuilder {
	q.page = &req
	return q
}

// bind replaces each `?` in fragment with the next positional parameter.
func (q *SelectBuilder) bind(fragment string, args []interface{}) string {
	if len(args) == 0 {
		return fragment
	}
	var b strings.Builder
	i := 0
	for _, r := range fragment {
		if r == '?' && i < len(args) {
			q.args = append(q.args, args[i])
			fmt.Fprintf(&b, "$%d", len(q.args))
			i++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *SelectBuilder) conditions() []string {
	conds := make([]string, 0, len(q.where)+1)
	if !q.scope.IncludeDeleted {
		conds = append(conds, q.alias+".deleted_at IS NULL")
	}
	return append(conds, q.where...)
}

func (q *SelectBuilder) from() string {
	var b strings.Builder
	fmt.Fprintf(&b, " FROM %s %s", q.table, q.alias)
	for _, j := range q.joins {
		b.WriteString(" ")
		b.WriteString(j)
	}
	if conds := q.conditions(); len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	return b.String()
}

// SQL returns the full statement and its arguments.
func (q *SelectBuilder) SQL() (string, []interface{}) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(q.columns)
	b.WriteString(q.from())
	if q.orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.orderBy)
	}
	args := append([]interface{}(nil), q.args...)
	if q.page != nil {
		args = append(args, q.page.Limit, q.page.Skip)
		fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	return b.String(), args
}

// CountSQL returns a COUNT(*) over the same filters, ignoring order and window.
func (q *SelectBuilder) CountSQL() (string, []interface{}) {
	return "SELECT COUNT(*)" + q.from(), append([]interface{}(nil), q.args...)
}

// JoinActive returns a join condition fragment excluding soft-deleted rows of a
// joined audited table.
func JoinActive(alias string) string {
	return alias + ".deleted_at IS NULL"
}
