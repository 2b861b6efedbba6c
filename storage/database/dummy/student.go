package dummydb

import (
	"sort"

	"github.com/richyfesta/arnoma/core"
	"github.com/richyfesta/arnoma/core/student"
)

type studentRepository struct {
	students *studentTable
	groups   *groupTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{students: db.students, groups: db.groups}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.students.table))
	for _, stu := range repo.students.table {
		students = append(students, *stu)
	}
	// map iteration order is random; roster order is by creation time
	sort.Slice(students, func(i, j int) bool {
		if students[i].CreatedAt.Equal(students[j].CreatedAt) {
			return students[i].ID < students[j].ID
		}
		return students[i].CreatedAt.Before(students[j].CreatedAt)
	})
	return students
}

func (repo *studentRepository) CreateStudent(stu student.Student) (student.Student, error) {
	repo.students.Lock()
	defer repo.students.Unlock()

	repo.students.table[stu.ID] = &stu
	return stu, nil
}

func (repo *studentRepository) QueryAllStudents() ([]student.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()
	return repo.query(), nil
}

func (repo *studentRepository) GetStudentByID(id string) (student.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	if stu, ok := repo.students.table[id]; ok {
		return *stu, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudentsByGroup(group string) ([]student.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	var members []student.Student
	for _, stu := range repo.query() {
		if core.CleanString(stu.Group) == core.CleanString(group) {
			members = append(members, stu)
		}
	}
	return members, nil
}

func (repo *studentRepository) QueryAllGroups() ([]student.Group, error) {
	repo.groups.RLock()
	defer repo.groups.RUnlock()

	groups := make([]student.Group, 0, len(repo.groups.table))
	for _, grp := range repo.groups.table {
		groups = append(groups, *grp)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (repo *studentRepository) GetGroupByName(name string) (student.Group, error) {
	repo.groups.RLock()
	defer repo.groups.RUnlock()

	if grp, ok := repo.groups.table[name]; ok {
		return *grp, nil
	}
	return student.Group{}, student.ErrGroupNotFound
}

// CreateGroup is a test/dev helper; production groups come from the UI.
func (repo *studentRepository) CreateGroup(grp student.Group) (student.Group, error) {
	repo.groups.Lock()
	defer repo.groups.Unlock()

	repo.groups.table[grp.Name] = &grp
	return grp, nil
}
