package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/barre-app/barre/internal/server/database"
	"github.com/barre-app/barre/internal/wire"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	getUser func(ctx context.Context, id int64) (database.User, error)
}

func (f fakeUsers) GetUserByID(ctx context.Context, id int64) (database.User, error) {
	return f.getUser(ctx, id)
}

type fakeDirectory struct {
	studentAcademy func(ctx context.Context, id int64) (int64, bool, error)
	staffAcademy   func(ctx context.Context, id int64) (int64, bool, error)
	studentClasses func(ctx context.Context, id int64) ([]int64, error)
	teacherClasses func(ctx context.Context, id int64) ([]int64, error)
	classAcademy   func(ctx context.Context, id int64) (int64, error)
}

func (f fakeDirectory) GetStudentAcademyID(ctx context.Context, id int64) (int64, bool, error) {
	return f.studentAcademy(ctx, id)
}

func (f fakeDirectory) GetStaffAcademyID(ctx context.Context, id int64) (int64, bool, error) {
	return f.staffAcademy(ctx, id)
}

func (f fakeDirectory) ListStudentClassIDs(ctx context.Context, id int64) ([]int64, error) {
	return f.studentClasses(ctx, id)
}

func (f fakeDirectory) ListTeacherClassIDs(ctx context.Context, id int64) ([]int64, error) {
	return f.teacherClasses(ctx, id)
}

func (f fakeDirectory) GetClassAcademyID(ctx context.Context, id int64) (int64, error) {
	return f.classAcademy(ctx, id)
}

func userWithRole(role string) fakeUsers {
	return fakeUsers{
		getUser: func(ctx context.Context, id int64) (database.User, error) {
			return database.User{ID: id, Role: role, Name: "n"}, nil
		},
	}
}

func TestResolveGrant_StudentJoinsExactRooms(t *testing.T) {
	t.Parallel()

	directory := fakeDirectory{
		studentAcademy: func(ctx context.Context, id int64) (int64, bool, error) { return 7, true, nil },
		studentClasses: func(ctx context.Context, id int64) ([]int64, error) { return []int64{3, 9}, nil },
	}
	deps := NewDeps(userWithRole("STUDENT"), directory, time.Now)

	user, grant, err := ResolveGrant(context.Background(), deps, 11)
	require.NoError(t, err)
	require.Equal(t, int64(11), user.ID)
	require.IsType(t, StudentGrant{}, grant)

	academy, ok := grant.AcademyID()
	require.True(t, ok)
	require.Equal(t, int64(7), academy)
	require.Equal(t, []int64{3, 9}, grant.ClassIDs())

	require.Equal(t,
		[]string{"role:STUDENT", "user:11", "academy:7", "class:3", "class:9"},
		Rooms(11, grant))
}

func TestResolveGrant_UnaffiliatedStudentHasNoAcademyRoom(t *testing.T) {
	t.Parallel()

	directory := fakeDirectory{
		studentAcademy: func(ctx context.Context, id int64) (int64, bool, error) { return 0, false, nil },
		studentClasses: func(ctx context.Context, id int64) ([]int64, error) { return nil, nil },
	}
	deps := NewDeps(userWithRole("STUDENT"), directory, time.Now)

	_, grant, err := ResolveGrant(context.Background(), deps, 5)
	require.NoError(t, err)

	_, ok := grant.AcademyID()
	require.False(t, ok)
	require.Equal(t, []string{"role:STUDENT", "user:5"}, Rooms(5, grant))
}

func TestResolveGrant_TeacherGetsTaughtClasses(t *testing.T) {
	t.Parallel()

	directory := fakeDirectory{
		staffAcademy:   func(ctx context.Context, id int64) (int64, bool, error) { return 2, true, nil },
		teacherClasses: func(ctx context.Context, id int64) ([]int64, error) { return []int64{14}, nil },
	}
	deps := NewDeps(userWithRole("TEACHER"), directory, time.Now)

	_, grant, err := ResolveGrant(context.Background(), deps, 8)
	require.NoError(t, err)
	require.IsType(t, TeacherGrant{}, grant)
	require.Equal(t, []string{"role:TEACHER", "user:8", "academy:2", "class:14"}, Rooms(8, grant))
}

func TestResolveGrant_PrincipalGetsNoClassRooms(t *testing.T) {
	t.Parallel()

	directory := fakeDirectory{
		staffAcademy: func(ctx context.Context, id int64) (int64, bool, error) { return 4, true, nil },
	}
	deps := NewDeps(userWithRole("PRINCIPAL"), directory, time.Now)

	_, grant, err := ResolveGrant(context.Background(), deps, 3)
	require.NoError(t, err)
	require.IsType(t, PrincipalGrant{}, grant)
	require.Empty(t, grant.ClassIDs())
	// Principals reach class-scoped events through the academy room.
	require.Equal(t, []string{"role:PRINCIPAL", "user:3", "academy:4"}, Rooms(3, grant))
}

func TestResolveGrant_UnknownUserRejected(t *testing.T) {
	t.Parallel()

	users := fakeUsers{
		getUser: func(ctx context.Context, id int64) (database.User, error) {
			return database.User{}, database.ErrNotFound
		},
	}
	deps := NewDeps(users, fakeDirectory{}, time.Now)

	_, _, err := ResolveGrant(context.Background(), deps, 99)
	require.ErrorIs(t, err, ErrUnknownUser)
}

func TestResolveGrant_UnknownRoleRejected(t *testing.T) {
	t.Parallel()

	deps := NewDeps(userWithRole("JANITOR"), fakeDirectory{}, time.Now)

	_, _, err := ResolveGrant(context.Background(), deps, 1)
	require.Error(t, err)
}

func TestValidateSocketAuthPayload_MissingToken(t *testing.T) {
	t.Parallel()

	require.Error(t, ValidateSocketAuthPayload(wire.SocketAuthPayload{}))
	require.NoError(t, ValidateSocketAuthPayload(wire.SocketAuthPayload{Token: "t"}))
}

func TestCanPostToClass_Membership(t *testing.T) {
	t.Parallel()

	deps := NewDeps(nil, fakeDirectory{}, time.Now)

	grant := StudentGrant{Classes: []int64{3, 9}}
	ok, err := CanPostToClass(context.Background(), deps, grant, 9)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = CanPostToClass(context.Background(), deps, grant, 4)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCanPostToClass_PrincipalScopedToAcademy(t *testing.T) {
	t.Parallel()

	directory := fakeDirectory{
		classAcademy: func(ctx context.Context, id int64) (int64, error) {
			if id == 3 {
				return 7, nil
			}
			return 8, nil
		},
	}
	deps := NewDeps(nil, directory, time.Now)

	academy := int64(7)
	grant := PrincipalGrant{Academy: &academy}

	ok, err := CanPostToClass(context.Background(), deps, grant, 3)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = CanPostToClass(context.Background(), deps, grant, 5)
	require.NoError(t, err)
	require.False(t, ok)
}
