package inmemdb

import (
	"context"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) codeExists(code, excludedID string) bool {
	for _, sch := range repo.db.schools {
		if sch.Code == code && sch.ID != excludedID {
			return true
		}
	}
	return false
}

func (repo *schoolRepository) CodeExists(_ context.Context, code, excludedID string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.codeExists(code, excludedID), nil
}

func (repo *schoolRepository) CreateSchool(_ context.Context, sch school.School) (school.School, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.codeExists(sch.Code, "") {
		return school.School{}, school.ErrCodeExists
	}
	repo.db.schools[sch.ID] = sch
	return sch, nil
}

func schoolField(sch school.School, name string) interface{} {
	switch name {
	case "name":
		return sch.Name
	case "code":
		return sch.Code
	case "is_active":
		return sch.IsActive
	}
	return sch.CreatedAt
}

func (repo *schoolRepository) QuerySchools(_ context.Context, filter *school.QueryFilter, ordering []core.DBOrdering) ([]school.School, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	schools := make([]school.School, 0, len(repo.db.schools))
	for _, sch := range repo.db.schools {
		if filter != nil {
			if filter.Search != "" && !containsFold(sch.Name, filter.Search) && !containsFold(sch.Code, filter.Search) {
				continue
			}
			if filter.IsActive != nil && sch.IsActive != *filter.IsActive {
				continue
			}
		}
		schools = append(schools, sch)
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	orderBy(schools, ordering, schoolField)
	return schools, nil
}

func (repo *schoolRepository) GetSchool(_ context.Context, id string) (school.School, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sch, ok := repo.db.schools[id]; ok {
		return sch, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) UpdateSchool(_ context.Context, sch school.School) (school.School, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.schools[sch.ID]; !ok {
		return school.School{}, school.ErrNotFound
	}
	if repo.codeExists(sch.Code, sch.ID) {
		return school.School{}, school.ErrCodeExists
	}
	repo.db.schools[sch.ID] = sch
	return sch, nil
}

// DeleteSchool deletes the school's classes and detaches its users.
func (repo *schoolRepository) DeleteSchool(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.schools[id]; !ok {
		return school.ErrNotFound
	}
	for _, st := range repo.db.students {
		if st.SchoolID == id {
			return school.ErrHasStudents
		}
	}

	delete(repo.db.schools, id)
	for clsID, cls := range repo.db.classes {
		if cls.SchoolID == id {
			delete(repo.db.classes, clsID)
		}
	}
	for usrID, usr := range repo.db.users {
		if usr.SchoolID == id {
			usr.SchoolID = ""
			repo.db.users[usrID] = usr
		}
	}
	return nil
}

func (repo *schoolRepository) classNameExists(schoolID, name string) bool {
	for _, cls := range repo.db.classes {
		if cls.SchoolID == schoolID && cls.Name == name {
			return true
		}
	}
	return false
}

func (repo *schoolRepository) ClassNameExists(_ context.Context, schoolID, name string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.classNameExists(schoolID, name), nil
}

func (repo *schoolRepository) CreateClass(_ context.Context, cls school.Class) (school.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.schools[cls.SchoolID]; !ok {
		return school.Class{}, school.ErrNotFound
	}
	if repo.classNameExists(cls.SchoolID, cls.Name) {
		return school.Class{}, school.ErrClassExists
	}
	repo.db.classes[cls.ID] = cls
	return cls, nil
}

func (repo *schoolRepository) QueryClasses(_ context.Context, schoolID string) ([]school.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]school.Class, 0)
	for _, cls := range repo.db.classes {
		if cls.SchoolID == schoolID {
			classes = append(classes, cls)
		}
	}
	orderBy(classes, []core.DBOrdering{{Field: "name", Ascending: true}}, func(cls school.Class, _ string) interface{} {
		return cls.Name
	})
	return classes, nil
}

func (repo *schoolRepository) GetClass(_ context.Context, id string) (school.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return cls, nil
	}
	return school.Class{}, school.ErrClassNotFound
}

// DeleteClass detaches the class' students.
func (repo *schoolRepository) DeleteClass(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return school.ErrClassNotFound
	}
	delete(repo.db.classes, id)
	for stID, st := range repo.db.students {
		if st.ClassID == id {
			st.ClassID = ""
			repo.db.students[stID] = st
		}
	}
	return nil
}
