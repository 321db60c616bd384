package inmemdb

import (
	"context"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) numberExists(number, excludedID string) bool {
	for _, st := range repo.db.students {
		if st.StudentNumber == number && st.ID != excludedID {
			return true
		}
	}
	return false
}

func (repo *studentRepository) StudentNumberExists(_ context.Context, number, excludedID string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.numberExists(number, excludedID), nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.numberExists(st.StudentNumber, "") {
		return student.Student{}, student.ErrStudentNumberExists
	}
	repo.db.students[st.ID] = st
	return st, nil
}

func studentField(st student.Student, name string) interface{} {
	switch name {
	case "name":
		return st.Name
	case "student_number":
		return st.StudentNumber
	case "gender":
		return st.Gender
	}
	return st.CreatedAt
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]student.Student, 0)
	for _, st := range repo.db.students {
		if filter != nil {
			if filter.Search != "" &&
				!containsFold(st.Name, filter.Search) &&
				!containsFold(st.StudentNumber, filter.Search) &&
				!containsFold(st.Email, filter.Search) {
				continue
			}
			if (filter.SchoolID != "" && st.SchoolID != filter.SchoolID) ||
				(filter.ClassID != "" && st.ClassID != filter.ClassID) ||
				(filter.Gender != "" && st.Gender != filter.Gender) {
				continue
			}
		}
		students = append(students, st)
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	orderBy(students, ordering, studentField)
	return students, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, filter student.GetFilter) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if st, ok := repo.db.students[filter.ID]; ok {
			return st, nil
		}
		return student.Student{}, student.ErrNotFound
	}
	for _, st := range repo.db.students {
		if (filter.UserID != "" && st.UserID == filter.UserID) ||
			(filter.StudentNumber != "" && st.StudentNumber == filter.StudentNumber) {
			return st, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[st.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	if repo.numberExists(st.StudentNumber, st.ID) {
		return student.Student{}, student.ErrStudentNumberExists
	}
	repo.db.students[st.ID] = st
	return st, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return student.ErrNotFound
	}
	repo.db.deleteStudent(id)
	return nil
}

// deleteStudent removes a student and everything that belongs to them. db.mu must be held.
func (db *DB) deleteStudent(id string) {
	delete(db.students, id)

	checkins := db.checkins[:0]
	for _, c := range db.checkins {
		if c.StudentID != id {
			checkins = append(checkins, c)
		}
	}
	db.checkins = checkins

	for sessID, sess := range db.sessions {
		if sess.StudentID == id {
			delete(db.sessions, sessID)
			delete(db.messages, sessID)
			delete(db.summaries, sessID)
		}
	}
	for eID, e := range db.entries {
		if e.StudentID == id {
			delete(db.entries, eID)
		}
	}
	for gID, g := range db.goals {
		if g.StudentID == id {
			delete(db.goals, gID)
		}
	}
}
