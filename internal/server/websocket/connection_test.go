package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/barre-app/barre/internal/server/crypto"
	"github.com/barre-app/barre/internal/server/database"
	"github.com/barre-app/barre/internal/server/websocket/handlers"
	"github.com/barre-app/barre/internal/wire"
)

type emittedEvent struct {
	name    string
	payload any
}

// fakeConn records everything the connection lifecycle does to a socket.
type fakeConn struct {
	id       string
	auth     map[string]any
	rooms    []string
	events   []emittedEvent
	closed   bool
	handlers map[string]func(args ...any)
}

func newFakeConn(id string, auth map[string]any) *fakeConn {
	return &fakeConn{id: id, auth: auth, handlers: make(map[string]func(args ...any))}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) AuthData() map[string]any { return f.auth }

func (f *fakeConn) Join(room string) { f.rooms = append(f.rooms, room) }

func (f *fakeConn) Emit(event string, payload any) {
	f.events = append(f.events, emittedEvent{name: event, payload: payload})
}

func (f *fakeConn) OnEvent(event string, fn func(args ...any)) { f.handlers[event] = fn }

func (f *fakeConn) Close() { f.closed = true }

func (f *fakeConn) fire(event string, args ...any) {
	if fn, ok := f.handlers[event]; ok {
		fn(args...)
	}
}

type fakeUserStore struct {
	users map[int64]database.User
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id int64) (database.User, error) {
	u, ok := f.users[id]
	if !ok {
		return database.User{}, database.ErrNotFound
	}
	return u, nil
}

type fakeDirStore struct {
	studentAcademy map[int64]int64
	staffAcademy   map[int64]int64
	studentClasses map[int64][]int64
	teacherClasses map[int64][]int64
	classAcademy   map[int64]int64
}

func (f *fakeDirStore) GetStudentAcademyID(_ context.Context, id int64) (int64, bool, error) {
	a, ok := f.studentAcademy[id]
	return a, ok, nil
}

func (f *fakeDirStore) GetStaffAcademyID(_ context.Context, id int64) (int64, bool, error) {
	a, ok := f.staffAcademy[id]
	return a, ok, nil
}

func (f *fakeDirStore) ListStudentClassIDs(_ context.Context, id int64) ([]int64, error) {
	return f.studentClasses[id], nil
}

func (f *fakeDirStore) ListTeacherClassIDs(_ context.Context, id int64) ([]int64, error) {
	return f.teacherClasses[id], nil
}

func (f *fakeDirStore) GetClassAcademyID(_ context.Context, id int64) (int64, error) {
	a, ok := f.classAcademy[id]
	if !ok {
		return 0, database.ErrNotFound
	}
	return a, nil
}

const lifecycleSecret = "lifecycle-secret"

func newLifecycleServer(t *testing.T, users *fakeUserStore, dir *fakeDirStore, now func() time.Time) *SocketIOServer {
	t.Helper()
	jm, err := crypto.NewJWTManager(lifecycleSecret, time.Hour)
	require.NoError(t, err)
	if now == nil {
		now = time.Now
	}
	return &SocketIOServer{
		jwtManager: jm,
		registry:   NewRegistry(),
		deps:       handlers.NewDeps(users, dir, now),
	}
}

func mintToken(t *testing.T, userID int64, role string, ttl time.Duration) string {
	t.Helper()
	jm, err := crypto.NewJWTManager(lifecycleSecret, ttl)
	require.NoError(t, err)
	token, err := jm.CreateToken(userID, role)
	require.NoError(t, err)
	return token
}

func TestHandleConnection_StudentJoinsGrantRooms(t *testing.T) {
	t.Parallel()

	users := &fakeUserStore{users: map[int64]database.User{
		11: {ID: 11, UserID: "anna", Role: "STUDENT"},
	}}
	dir := &fakeDirStore{
		studentAcademy: map[int64]int64{11: 7},
		studentClasses: map[int64][]int64{11: {3, 9}},
	}
	srv := newLifecycleServer(t, users, dir, nil)

	conn := newFakeConn("sock-1", map[string]any{"token": mintToken(t, 11, "STUDENT", time.Hour)})
	srv.handleConnection(conn)

	require.False(t, conn.closed)
	require.Equal(t, 1, srv.registry.Count())

	rec, ok := srv.registry.Get("sock-1")
	require.True(t, ok)
	require.Equal(t, int64(11), rec.UserID)
	require.Equal(t, handlers.RoleStudent, rec.Role)
	require.NotNil(t, rec.AcademyID)
	require.Equal(t, int64(7), *rec.AcademyID)
	require.Equal(t, []int64{3, 9}, rec.ClassIDs)

	require.Equal(t, []string{"role:STUDENT", "user:11", "academy:7", "class:3", "class:9"}, conn.rooms)

	require.Len(t, conn.events, 1)
	require.Equal(t, "connection_confirmed", conn.events[0].name)
	require.Equal(t, wire.ConnectionConfirmedPayload{
		UserID:  11,
		Role:    "STUDENT",
		Message: "connected",
	}, conn.events[0].payload)

	// Event handlers are only installed once the connection is authenticated.
	require.Contains(t, conn.handlers, "class_message")
	require.Contains(t, conn.handlers, "presence_ping")
	require.Contains(t, conn.handlers, "disconnect")
}

func TestHandleConnection_RejectionClosesWithoutEmission(t *testing.T) {
	t.Parallel()

	users := &fakeUserStore{users: map[int64]database.User{
		11: {ID: 11, UserID: "anna", Role: "STUDENT"},
	}}
	dir := &fakeDirStore{}

	tests := []struct {
		name string
		auth map[string]any
	}{
		{name: "missing auth", auth: nil},
		{name: "missing token", auth: map[string]any{"other": "x"}},
		{name: "empty token", auth: map[string]any{"token": ""}},
		{name: "garbage token", auth: map[string]any{"token": "not.a.jwt"}},
		{name: "expired token", auth: map[string]any{"token": mintToken(t, 11, "STUDENT", -time.Minute)}},
		{name: "unknown user", auth: map[string]any{"token": mintToken(t, 99, "STUDENT", time.Hour)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := newLifecycleServer(t, users, dir, nil)
			conn := newFakeConn("sock-1", tc.auth)
			srv.handleConnection(conn)

			require.True(t, conn.closed)
			require.Empty(t, conn.events)
			require.Empty(t, conn.rooms)
			require.Empty(t, conn.handlers)
			require.Equal(t, 0, srv.registry.Count())
		})
	}
}

func TestHandleConnection_ExpiredTokenAfterHandshake(t *testing.T) {
	t.Parallel()

	users := &fakeUserStore{users: map[int64]database.User{
		11: {ID: 11, UserID: "anna", Role: "STUDENT"},
	}}
	dir := &fakeDirStore{studentAcademy: map[int64]int64{11: 7}}

	current := time.Now()
	srv := newLifecycleServer(t, users, dir, func() time.Time { return current })

	conn := newFakeConn("sock-1", map[string]any{"token": mintToken(t, 11, "STUDENT", time.Hour)})
	srv.handleConnection(conn)
	require.Len(t, conn.events, 1)

	// The handshake token expires while the connection stays open; the next
	// operation is rejected with a recoverable auth_error.
	current = current.Add(2 * time.Hour)
	conn.fire("presence_ping")

	require.Len(t, conn.events, 2)
	require.Equal(t, "auth_error", conn.events[1].name)
	require.Equal(t, wire.AuthErrorPayload{
		Type:    wire.AuthErrorTokenExpired,
		Message: "Access token has expired",
		Code:    "AUTH_TOKEN_EXPIRED",
	}, conn.events[1].payload)

	// Expiry does not tear down the connection; the client refreshes and
	// reconnects on its own.
	require.False(t, conn.closed)
	require.Equal(t, 1, srv.registry.Count())
}

func TestHandleConnection_DisconnectRemovesRegistryEntry(t *testing.T) {
	t.Parallel()

	users := &fakeUserStore{users: map[int64]database.User{
		11: {ID: 11, UserID: "anna", Role: "STUDENT"},
	}}
	dir := &fakeDirStore{}
	srv := newLifecycleServer(t, users, dir, nil)

	conn := newFakeConn("sock-1", map[string]any{"token": mintToken(t, 11, "STUDENT", time.Hour)})
	srv.handleConnection(conn)
	require.Equal(t, 1, srv.registry.Count())

	conn.fire("disconnect", "client namespace disconnect")
	require.Equal(t, 0, srv.registry.Count())

	// Events racing the disconnect are dropped silently; the handlers were
	// only ever installed for an authenticated connection.
	conn.fire("presence_ping")
	conn.fire("class_message", map[string]any{"classId": 3, "content": "hi"})
	require.Len(t, conn.events, 1)
}

func TestHandleConnection_ClassMessageOutsideGrantIsDropped(t *testing.T) {
	t.Parallel()

	users := &fakeUserStore{users: map[int64]database.User{
		21: {ID: 21, UserID: "dora", Role: "TEACHER"},
	}}
	dir := &fakeDirStore{
		staffAcademy:   map[int64]int64{21: 7},
		teacherClasses: map[int64][]int64{21: {3}},
	}
	srv := newLifecycleServer(t, users, dir, nil)

	conn := newFakeConn("sock-1", map[string]any{"token": mintToken(t, 21, "TEACHER", time.Hour)})
	srv.handleConnection(conn)
	require.Len(t, conn.events, 1)

	// Class 9 is outside the teacher's grant; the message is dropped without
	// any relay or error emission.
	conn.fire("class_message", map[string]any{"classId": 9, "content": "hi"})
	require.Len(t, conn.events, 1)
}
