package postgres

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/geo"
	"github.com/lalith-99/estatehub/internal/repository"
)

// queryBuilder accumulates WHERE conditions with numbered placeholders.
// It always starts with the tenant scope and the soft-delete exclusion.
type queryBuilder struct {
	conditions []string
	args       []any
}

func newQueryBuilder(tenantID uuid.UUID) *queryBuilder {
	qb := &queryBuilder{conditions: []string{"deleted_at IS NULL"}}
	qb.addCondition("tenant_id = %s", tenantID)
	return qb
}

// arg registers a value and returns its placeholder.
func (qb *queryBuilder) arg(v any) string {
	qb.args = append(qb.args, v)
	return fmt.Sprintf("$%d", len(qb.args))
}

// addCondition adds a condition whose format has a single %s for the
// placeholder of arg.
func (qb *queryBuilder) addCondition(format string, arg any) {
	qb.conditions = append(qb.conditions, fmt.Sprintf(format, qb.arg(arg)))
}

func (qb *queryBuilder) where() string {
	return "WHERE " + strings.Join(qb.conditions, " AND ")
}

// haversineSQL is the great-circle distance in meters from the row's
// coordinates to ($lat, $lng). Format args: lat, lng placeholders.
const haversineSQL = `2 * 6371000 * asin(least(1, sqrt(
	power(sin(radians(latitude - %[1]s::float8) / 2), 2) +
	cos(radians(%[1]s::float8)) * cos(radians(latitude)) *
	power(sin(radians(longitude - %[2]s::float8) / 2), 2))))`

// applyPropertyFilter turns a resolved listing filter into WHERE and
// ORDER BY clauses.
func applyPropertyFilter(tenantID uuid.UUID, f repository.PropertyFilter) (*queryBuilder, string) {
	qb := newQueryBuilder(tenantID)

	switch {
	case f.OwnDraftsOf != uuid.Nil:
		qb.addCondition("(status = 'published' OR (status = 'draft' AND owner_id = %s))", f.OwnDraftsOf)
	case f.Status != nil:
		qb.addCondition("status = %s", string(*f.Status))
	}

	if f.City != "" {
		qb.addCondition("city ILIKE %s", "%"+escapeLike(f.City)+"%")
	}
	if f.Type != nil {
		qb.addCondition("type = %s", string(*f.Type))
	}
	if f.MinPrice != nil {
		qb.addCondition("price >= %s", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		qb.addCondition("price <= %s", *f.MaxPrice)
	}

	if f.Near != nil {
		radius := f.MaxDistance
		if radius <= 0 {
			radius = geo.DefaultMaxDistance
		}
		if prefixes := geo.CoveringPrefixes(*f.Near, radius); len(prefixes) > 0 {
			patterns := make([]string, len(prefixes))
			for i, p := range prefixes {
				patterns[i] = p + "%"
			}
			qb.addCondition("geohash LIKE ANY(%s)", patterns)
		}
		lat := qb.arg(f.Near.Latitude)
		lng := qb.arg(f.Near.Longitude)
		dist := fmt.Sprintf(haversineSQL, lat, lng)
		qb.conditions = append(qb.conditions,
			fmt.Sprintf("(latitude IS NOT NULL AND %s <= %s)", dist, qb.arg(radius)))
	}

	col, ok := f.SortBy.Column()
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	orderBy := fmt.Sprintf("ORDER BY %s %s NULLS LAST, id", col, dir)

	return qb, orderBy
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
