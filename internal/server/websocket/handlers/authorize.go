package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/barre-app/barre/internal/server/database"
	"github.com/barre-app/barre/internal/wire"
)

// Role is a user role as stored in the users table.
type Role string

const (
	RoleStudent   Role = "STUDENT"
	RoleTeacher   Role = "TEACHER"
	RolePrincipal Role = "PRINCIPAL"
)

// ErrUnknownUser marks a token whose subject resolves to no user record.
var ErrUnknownUser = errors.New("unknown user")

// Grant is the authorization context resolved for an authenticated
// connection. It is a closed set: StudentGrant, TeacherGrant and
// PrincipalGrant are the only implementations.
type Grant interface {
	Role() Role
	// AcademyID returns the academy affiliation, if any.
	AcademyID() (int64, bool)
	// ClassIDs returns the class-room memberships this grant confers.
	// Principals return none; they reach class events via the academy room.
	ClassIDs() []int64

	isGrant()
}

// StudentGrant is the authorization context of a student: first academy
// affiliation plus active enrollments.
type StudentGrant struct {
	Academy *int64
	Classes []int64
}

func (g StudentGrant) Role() Role { return RoleStudent }
func (g StudentGrant) AcademyID() (int64, bool) {
	if g.Academy == nil {
		return 0, false
	}
	return *g.Academy, true
}
func (g StudentGrant) ClassIDs() []int64 { return g.Classes }
func (g StudentGrant) isGrant()          {}

// TeacherGrant is the authorization context of a teacher: assigned academy
// plus taught classes.
type TeacherGrant struct {
	Academy *int64
	Classes []int64
}

func (g TeacherGrant) Role() Role { return RoleTeacher }
func (g TeacherGrant) AcademyID() (int64, bool) {
	if g.Academy == nil {
		return 0, false
	}
	return *g.Academy, true
}
func (g TeacherGrant) ClassIDs() []int64 { return g.Classes }
func (g TeacherGrant) isGrant()          {}

// PrincipalGrant is the authorization context of a principal: academy only.
// Class-scoped events reach principals through the academy room.
type PrincipalGrant struct {
	Academy *int64
}

func (g PrincipalGrant) Role() Role { return RolePrincipal }
func (g PrincipalGrant) AcademyID() (int64, bool) {
	if g.Academy == nil {
		return 0, false
	}
	return *g.Academy, true
}
func (g PrincipalGrant) ClassIDs() []int64 { return nil }
func (g PrincipalGrant) isGrant()          {}

// ValidateSocketAuthPayload checks the handshake auth object. A missing
// token is an immediate rejection; there are no anonymous connections.
func ValidateSocketAuthPayload(p wire.SocketAuthPayload) error {
	if p.Token == "" {
		return fmt.Errorf("missing auth token")
	}
	return nil
}

// ResolveGrant looks up the user behind a verified token subject and builds
// its authorization context.
func ResolveGrant(ctx context.Context, deps Deps, userID int64) (database.User, Grant, error) {
	user, err := deps.Users().GetUserByID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return database.User{}, nil, ErrUnknownUser
	}
	if err != nil {
		return database.User{}, nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	switch Role(user.Role) {
	case RoleStudent:
		academy, ok, err := deps.Directory().GetStudentAcademyID(ctx, userID)
		if err != nil {
			return database.User{}, nil, err
		}
		classes, err := deps.Directory().ListStudentClassIDs(ctx, userID)
		if err != nil {
			return database.User{}, nil, err
		}
		g := StudentGrant{Classes: classes}
		if ok {
			g.Academy = &academy
		}
		return user, g, nil

	case RoleTeacher:
		academy, ok, err := deps.Directory().GetStaffAcademyID(ctx, userID)
		if err != nil {
			return database.User{}, nil, err
		}
		classes, err := deps.Directory().ListTeacherClassIDs(ctx, userID)
		if err != nil {
			return database.User{}, nil, err
		}
		g := TeacherGrant{Classes: classes}
		if ok {
			g.Academy = &academy
		}
		return user, g, nil

	case RolePrincipal:
		academy, ok, err := deps.Directory().GetStaffAcademyID(ctx, userID)
		if err != nil {
			return database.User{}, nil, err
		}
		g := PrincipalGrant{}
		if ok {
			g.Academy = &academy
		}
		return user, g, nil
	}

	return database.User{}, nil, fmt.Errorf("unknown role %q for user %d", user.Role, userID)
}

// Room name helpers. Any event broadcast to one of these names reaches
// exactly the connections whose grant matched it at connect time.

func RoleRoom(role Role) string { return "role:" + string(role) }
func UserRoom(userID int64) string { return "user:" + strconv.FormatInt(userID, 10) }
func AcademyRoom(id int64) string { return "academy:" + strconv.FormatInt(id, 10) }
func ClassRoom(id int64) string { return "class:" + strconv.FormatInt(id, 10) }

// Rooms returns the full set of rooms a connection with the given grant
// joins: per-role, per-user, per-academy (when affiliated) and one per
// class.
func Rooms(userID int64, g Grant) []string {
	rooms := []string{RoleRoom(g.Role()), UserRoom(userID)}
	if academyID, ok := g.AcademyID(); ok {
		rooms = append(rooms, AcademyRoom(academyID))
	}
	for _, classID := range g.ClassIDs() {
		rooms = append(rooms, ClassRoom(classID))
	}
	return rooms
}

// CanPostToClass reports whether the grant allows sending to a class room:
// direct class membership, or principal authority over the class's academy.
func CanPostToClass(ctx context.Context, deps Deps, g Grant, classID int64) (bool, error) {
	switch g := g.(type) {
	case StudentGrant, TeacherGrant:
		for _, id := range g.ClassIDs() {
			if id == classID {
				return true, nil
			}
		}
		return false, nil
	case PrincipalGrant:
		academyID, ok := g.AcademyID()
		if !ok {
			return false, nil
		}
		classAcademy, err := deps.Directory().GetClassAcademyID(ctx, classID)
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return classAcademy == academyID, nil
	}
	return false, nil
}
