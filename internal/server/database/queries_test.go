package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Queries {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db.DB)
}

func TestQueries_StudentFirstAcademyWins(t *testing.T) {
	t.Parallel()

	q := openTestDB(t)
	ctx := context.Background()

	studentID, err := q.CreateUser(ctx, "anna", "anna@example.com", "Anna", "STUDENT", "x")
	require.NoError(t, err)

	first, err := q.CreateAcademy(ctx, "First Position")
	require.NoError(t, err)
	second, err := q.CreateAcademy(ctx, "Second Position")
	require.NoError(t, err)

	// Affiliation order is insertion order; the first row wins.
	require.NoError(t, q.AddStudentToAcademy(ctx, first, studentID))
	require.NoError(t, q.AddStudentToAcademy(ctx, second, studentID))

	academyID, ok, err := q.GetStudentAcademyID(ctx, studentID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first, academyID)
}

func TestQueries_UnaffiliatedStudent(t *testing.T) {
	t.Parallel()

	q := openTestDB(t)
	ctx := context.Background()

	studentID, err := q.CreateUser(ctx, "bea", "bea@example.com", "Bea", "STUDENT", "x")
	require.NoError(t, err)

	_, ok, err := q.GetStudentAcademyID(ctx, studentID)
	require.NoError(t, err)
	require.False(t, ok)

	classes, err := q.ListStudentClassIDs(ctx, studentID)
	require.NoError(t, err)
	require.Empty(t, classes)
}

func TestQueries_OnlyActiveEnrollmentsCount(t *testing.T) {
	t.Parallel()

	q := openTestDB(t)
	ctx := context.Background()

	studentID, err := q.CreateUser(ctx, "cleo", "cleo@example.com", "Cleo", "STUDENT", "x")
	require.NoError(t, err)
	academyID, err := q.CreateAcademy(ctx, "Centre Stage")
	require.NoError(t, err)

	ballet, err := q.CreateClass(ctx, academyID, "Ballet I")
	require.NoError(t, err)
	jazz, err := q.CreateClass(ctx, academyID, "Jazz II")
	require.NoError(t, err)

	require.NoError(t, q.EnrollStudent(ctx, ballet, studentID))
	require.NoError(t, q.EnrollStudent(ctx, jazz, studentID))

	// Cancel one enrollment directly.
	_, err = q.db.ExecContext(ctx,
		`UPDATE enrollments SET status = 'CANCELLED' WHERE class_id = ? AND student_id = ?`,
		jazz, studentID)
	require.NoError(t, err)

	classes, err := q.ListStudentClassIDs(ctx, studentID)
	require.NoError(t, err)
	require.Equal(t, []int64{ballet}, classes)
}

func TestQueries_TeacherClassesAndStaffAcademy(t *testing.T) {
	t.Parallel()

	q := openTestDB(t)
	ctx := context.Background()

	teacherID, err := q.CreateUser(ctx, "dora", "dora@example.com", "Dora", "TEACHER", "x")
	require.NoError(t, err)
	academyID, err := q.CreateAcademy(ctx, "Barre None")
	require.NoError(t, err)
	require.NoError(t, q.SetStaffAcademy(ctx, academyID, teacherID))

	classID, err := q.CreateClass(ctx, academyID, "Pointe")
	require.NoError(t, err)
	require.NoError(t, q.AssignTeacher(ctx, classID, teacherID))

	gotAcademy, ok, err := q.GetStaffAcademyID(ctx, teacherID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, academyID, gotAcademy)

	classes, err := q.ListTeacherClassIDs(ctx, teacherID)
	require.NoError(t, err)
	require.Equal(t, []int64{classID}, classes)

	classAcademy, err := q.GetClassAcademyID(ctx, classID)
	require.NoError(t, err)
	require.Equal(t, academyID, classAcademy)
}

func TestQueries_GetUserNotFound(t *testing.T) {
	t.Parallel()

	q := openTestDB(t)

	_, err := q.GetUserByID(context.Background(), 12345)
	require.ErrorIs(t, err, ErrNotFound)
}
