package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/richyfesta/arnoma/core/student"
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

type studentRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Aliases   pq.StringArray `db:"aliases"`
	Email     string         `db:"email"`
	GroupName null.String    `db:"group_name"`
	Status    string         `db:"status"`
	Balance   float64        `db:"balance"`
	CreatedAt null.Time      `db:"created_at"`
	UpdatedAt null.Time      `db:"updated_at"`
}

func (repo studentRepository) toRow(stu student.Student) studentRow {
	return studentRow{
		ID:        stu.ID,
		Name:      stu.Name,
		Aliases:   stu.Aliases,
		Email:     stu.Email,
		GroupName: null.NewString(stu.Group, stu.Group != ""),
		Status:    stu.Status,
		Balance:   stu.Balance,
		CreatedAt: null.NewTime(stu.CreatedAt.UTC(), !stu.CreatedAt.IsZero()),
		UpdatedAt: null.NewTime(stu.UpdatedAt.UTC(), !stu.UpdatedAt.IsZero()),
	}
}

func (repo studentRepository) fromRow(row studentRow) student.Student {
	return student.Student{
		ID:        row.ID,
		Name:      row.Name,
		Aliases:   row.Aliases,
		Email:     row.Email,
		Group:     row.GroupName.String,
		Status:    row.Status,
		Balance:   row.Balance,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

func (repo studentRepository) fromRows(rows []studentRow) []student.Student {
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.fromRow(row))
	}
	return students
}

// trapNoRowsErr maps psql "no rows" err to student.ErrNotFound
func (repo studentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo studentRepository) CreateStudent(stu student.Student) (student.Student, error) {
	row := repo.toRow(stu)
	_, err := repo.db.NamedExec(
		`INSERT INTO student (id, name, aliases, email, group_name, status, balance, created_at, updated_at)
		 VALUES (:id, :name, :aliases, :email, :group_name, :status, :balance, :created_at, :updated_at)`, row)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return stu, nil
}

func (repo studentRepository) QueryAllStudents() ([]student.Student, error) {
	var rows []studentRow
	if err := repo.db.Select(&rows, `SELECT * FROM student ORDER BY created_at, id`); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return repo.fromRows(rows), nil
}

func (repo studentRepository) GetStudentByID(id string) (student.Student, error) {
	var row studentRow
	if err := repo.db.Get(&row, `SELECT * FROM student WHERE id = $1`, id); err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "finding student by ID")
	}
	return repo.fromRow(row), nil
}

func (repo studentRepository) QueryStudentsByGroup(group string) ([]student.Student, error) {
	var rows []studentRow
	err := repo.db.Select(&rows, `SELECT * FROM student WHERE group_name = $1 ORDER BY created_at, id`, group)
	if err != nil {
		return nil, errors.Wrap(err, "querying students by group")
	}
	return repo.fromRows(rows), nil
}

type groupRow struct {
	Name     string `db:"name"`
	Schedule string `db:"schedule"`
}

func (repo studentRepository) CreateGroup(grp student.Group) (student.Group, error) {
	_, err := repo.db.NamedExec(
		`INSERT INTO "group" (name, schedule) VALUES (:name, :schedule)`,
		groupRow{Name: grp.Name, Schedule: grp.Schedule})
	if err != nil {
		return student.Group{}, errors.Wrap(err, "inserting group")
	}
	return grp, nil
}

func (repo studentRepository) QueryAllGroups() ([]student.Group, error) {
	var rows []groupRow
	if err := repo.db.Select(&rows, `SELECT * FROM "group" ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	groups := make([]student.Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, student.Group{Name: row.Name, Schedule: row.Schedule})
	}
	return groups, nil
}

func (repo studentRepository) GetGroupByName(name string) (student.Group, error) {
	var row groupRow
	if err := repo.db.Get(&row, `SELECT * FROM "group" WHERE name = $1`, name); err != nil {
		if err == sql.ErrNoRows {
			return student.Group{}, student.ErrGroupNotFound
		}
		return student.Group{}, errors.Wrap(err, "finding group")
	}
	return student.Group{Name: row.Name, Schedule: row.Schedule}, nil
}
