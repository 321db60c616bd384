package pgrepos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/mood"
)

func TestConditions(t *testing.T) {
	var cond conditions
	assert.Equal(t, "", cond.String())

	cond.add("name ILIKE ? OR email ILIKE ?", "%a%", "%a%")
	cond.add("is_active = ?", true)
	assert.Equal(t, " WHERE (name ILIKE ? OR email ILIKE ?) AND (is_active = ?)", cond.String())
	assert.Equal(t, []interface{}{"%a%", "%a%", true}, cond.args)
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, " ORDER BY name ASC", orderClause(nil, "name ASC"))
	assert.Equal(t,
		" ORDER BY name ASC, created_at DESC",
		orderClause([]core.DBOrdering{{Field: "name", Ascending: true}, {Field: "created_at"}}, "id"),
	)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%jo%", likePattern("jo"))
	assert.Equal(t, `%100\%\_%`, likePattern("100%_"))
}

func TestStatsConditions(t *testing.T) {
	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 29)

	where, args := statsConditions(mood.StatsFilter{SchoolID: "sch", From: from, To: to})
	assert.Equal(t, " WHERE (school_id = $1) AND (checkin_date >= $2) AND (checkin_date <= $3)", where)
	assert.Equal(t, []interface{}{"sch", from, to}, args)

	where, args = statsConditions(mood.StatsFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}
