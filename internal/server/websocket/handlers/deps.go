package handlers

import (
	"context"
	"time"

	"github.com/barre-app/barre/internal/server/database"
)

// UserQueries is the user lookup surface needed by handshake authorization.
type UserQueries interface {
	GetUserByID(ctx context.Context, id int64) (database.User, error)
}

// DirectoryQueries resolves academy and class relationships for a user.
type DirectoryQueries interface {
	GetStudentAcademyID(ctx context.Context, studentID int64) (int64, bool, error)
	GetStaffAcademyID(ctx context.Context, userID int64) (int64, bool, error)
	ListStudentClassIDs(ctx context.Context, studentID int64) ([]int64, error)
	ListTeacherClassIDs(ctx context.Context, teacherID int64) ([]int64, error)
	GetClassAcademyID(ctx context.Context, classID int64) (int64, error)
}

// Deps bundles the dependencies handler functions need, so tests can inject
// fakes and a fixed clock.
type Deps struct {
	users     UserQueries
	directory DirectoryQueries
	now       func() time.Time
}

// NewDeps builds a dependency bundle for handler calls.
func NewDeps(users UserQueries, directory DirectoryQueries, now func() time.Time) Deps {
	return Deps{
		users:     users,
		directory: directory,
		now:       now,
	}
}

func (d Deps) Users() UserQueries          { return d.users }
func (d Deps) Directory() DirectoryQueries { return d.directory }
func (d Deps) Now() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}
