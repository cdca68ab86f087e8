package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("not found")

// User is a row in the users table.
type User struct {
	ID           int64
	UserID       string
	Email        string
	Name         string
	Role         string
	PasswordHash string
}

// Queries provides the typed query surface used by the API handlers and the
// websocket authorization path.
type Queries struct {
	db *sql.DB
}

// New creates a Queries instance backed by db.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// GetUserByID fetches a user by numeric id.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return q.scanUser(q.db.QueryRowContext(ctx,
		`SELECT id, user_id, email, name, role, password_hash FROM users WHERE id = ?`, id))
}

// GetUserByEmail fetches a user by email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return q.scanUser(q.db.QueryRowContext(ctx,
		`SELECT id, user_id, email, name, role, password_hash FROM users WHERE email = ?`, email))
}

func (q *Queries) scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.UserID, &u.Email, &u.Name, &u.Role, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

// GetStudentAcademyID returns the student's academy affiliation. When the
// student belongs to several academies the first row in insertion order wins.
// ok is false when the student is unaffiliated.
func (q *Queries) GetStudentAcademyID(ctx context.Context, studentID int64) (academyID int64, ok bool, err error) {
	err = q.db.QueryRowContext(ctx,
		`SELECT academy_id FROM academy_students WHERE user_id = ? ORDER BY id LIMIT 1`,
		studentID).Scan(&academyID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query student academy: %w", err)
	}
	return academyID, true, nil
}

// GetStaffAcademyID returns the academy a teacher or principal is assigned
// to. ok is false when the user has no assignment.
func (q *Queries) GetStaffAcademyID(ctx context.Context, userID int64) (academyID int64, ok bool, err error) {
	err = q.db.QueryRowContext(ctx,
		`SELECT academy_id FROM academy_staff WHERE user_id = ?`, userID).Scan(&academyID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query staff academy: %w", err)
	}
	return academyID, true, nil
}

// ListStudentClassIDs returns the class ids from the student's active
// enrollments.
func (q *Queries) ListStudentClassIDs(ctx context.Context, studentID int64) ([]int64, error) {
	return q.listIDs(ctx,
		`SELECT class_id FROM enrollments WHERE student_id = ? AND status = 'ACTIVE' ORDER BY class_id`,
		studentID)
}

// ListTeacherClassIDs returns the class ids a teacher is assigned to.
func (q *Queries) ListTeacherClassIDs(ctx context.Context, teacherID int64) ([]int64, error) {
	return q.listIDs(ctx,
		`SELECT class_id FROM class_teachers WHERE teacher_id = ? ORDER BY class_id`,
		teacherID)
}

func (q *Queries) listIDs(ctx context.Context, query string, arg any) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetClassAcademyID returns the academy a class belongs to.
func (q *Queries) GetClassAcademyID(ctx context.Context, classID int64) (int64, error) {
	var academyID int64
	err := q.db.QueryRowContext(ctx,
		`SELECT academy_id FROM classes WHERE id = ?`, classID).Scan(&academyID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query class academy: %w", err)
	}
	return academyID, nil
}

// CreateUser inserts a user and returns its id.
func (q *Queries) CreateUser(ctx context.Context, userID, email, name, role, passwordHash string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO users (user_id, email, name, role, password_hash) VALUES (?, ?, ?, ?, ?)`,
		userID, email, name, role, passwordHash)
	if err != nil {
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return res.LastInsertId()
}

// CreateAcademy inserts an academy and returns its id.
func (q *Queries) CreateAcademy(ctx context.Context, name string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO academies (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert academy: %w", err)
	}
	return res.LastInsertId()
}

// CreateClass inserts a class and returns its id.
func (q *Queries) CreateClass(ctx context.Context, academyID int64, name string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO classes (academy_id, name) VALUES (?, ?)`, academyID, name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert class: %w", err)
	}
	return res.LastInsertId()
}

// AddStudentToAcademy records a student affiliation.
func (q *Queries) AddStudentToAcademy(ctx context.Context, academyID, studentID int64) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO academy_students (academy_id, user_id) VALUES (?, ?)`, academyID, studentID)
	if err != nil {
		return fmt.Errorf("failed to add student to academy: %w", err)
	}
	return nil
}

// SetStaffAcademy assigns a teacher or principal to an academy.
func (q *Queries) SetStaffAcademy(ctx context.Context, academyID, userID int64) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO academy_staff (academy_id, user_id) VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET academy_id = excluded.academy_id`,
		academyID, userID)
	if err != nil {
		return fmt.Errorf("failed to set staff academy: %w", err)
	}
	return nil
}

// EnrollStudent creates an active enrollment.
func (q *Queries) EnrollStudent(ctx context.Context, classID, studentID int64) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO enrollments (class_id, student_id, status) VALUES (?, ?, 'ACTIVE')`,
		classID, studentID)
	if err != nil {
		return fmt.Errorf("failed to enroll student: %w", err)
	}
	return nil
}

// AssignTeacher assigns a teacher to a class.
func (q *Queries) AssignTeacher(ctx context.Context, classID, teacherID int64) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO class_teachers (class_id, teacher_id) VALUES (?, ?)`, classID, teacherID)
	if err != nil {
		return fmt.Errorf("failed to assign teacher: %w", err)
	}
	return nil
}
