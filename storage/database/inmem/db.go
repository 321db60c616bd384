package inmemdb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/chat"
	"github.com/trezcool/utulivu/core/content"
	"github.com/trezcool/utulivu/core/goal"
	"github.com/trezcool/utulivu/core/journal"
	"github.com/trezcool/utulivu/core/mood"
	"github.com/trezcool/utulivu/core/school"
	"github.com/trezcool/utulivu/core/student"
	"github.com/trezcool/utulivu/core/user"
)

// DB keeps every table in memory. A single lock guards all tables so that
// cross-table constraints (uniqueness, restricted deletes) hold.
type DB struct {
	mu sync.RWMutex

	users      map[string]user.User
	schools    map[string]school.School
	classes    map[string]school.Class
	students   map[string]student.Student
	checkins   []mood.Checkin
	sessions   map[string]chat.Session
	messages   map[string][]chat.Message // by session ID, oldest first
	summaries  map[string]chat.Summary   // by session ID
	entries    map[string]journal.Entry
	goals      map[string]goal.Goal
	categories map[string]content.Category
	resources  map[string]content.Resource
}

func Open() *DB {
	return &DB{
		users:      make(map[string]user.User),
		schools:    make(map[string]school.School),
		classes:    make(map[string]school.Class),
		students:   make(map[string]student.Student),
		sessions:   make(map[string]chat.Session),
		messages:   make(map[string][]chat.Message),
		summaries:  make(map[string]chat.Summary),
		entries:    make(map[string]journal.Entry),
		goals:      make(map[string]goal.Goal),
		categories: make(map[string]content.Category),
		resources:  make(map[string]content.Resource),
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append(make([]string, 0, len(s)), s...)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func inRange(t, from, to time.Time) bool {
	return (from.IsZero() || !t.Before(from)) && (to.IsZero() || !t.After(to))
}

// compare returns -1, 0 or 1. It handles the field types the repositories order by.
func compare(a, b interface{}) int {
	switch x := a.(type) {
	case string:
		y := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case time.Time:
		y := b.(time.Time)
		switch {
		case x.Before(y):
			return -1
		case x.After(y):
			return 1
		}
	case bool:
		y := b.(bool)
		switch {
		case !x && y:
			return -1
		case x && !y:
			return 1
		}
	case int:
		y := b.(int)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

// orderBy sorts items like an SQL ORDER BY on ordering; field returns the value of a column.
func orderBy[T any](items []T, ordering []core.DBOrdering, field func(item T, name string) interface{}) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range ordering {
			c := compare(field(items[i], ord.Field), field(items[j], ord.Field))
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}
