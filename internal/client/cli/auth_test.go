package cli

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dpetukhov/rosterhub/internal/client/backend"
	"github.com/dpetukhov/rosterhub/internal/client/directory"
	"github.com/dpetukhov/rosterhub/internal/client/session"
	"github.com/dpetukhov/rosterhub/internal/logging"
)

// fakeBackend implements every backend contract the app wires up.
type fakeBackend struct {
	mu   sync.Mutex
	subs []func(backend.Event)
	uid  string

	signInEmail string
	signInErr   error
	uploads     map[string][]byte
	docs        []backend.UserRecord
	page        []backend.UserRecord
	online      bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{uploads: make(map[string][]byte), online: true}
}

func (f *fakeBackend) emit(ev backend.Event) {
	f.mu.Lock()
	f.uid = ev.UID
	subs := append([]func(backend.Event){}, f.subs...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (f *fakeBackend) CreateCredential(ctx context.Context, email, password string) (string, error) {
	f.emit(backend.Event{UID: "new-uid"})
	return "new-uid", nil
}

func (f *fakeBackend) SignIn(ctx context.Context, email, password string) error {
	f.signInEmail = email
	if f.signInErr != nil {
		return f.signInErr
	}
	f.emit(backend.Event{UID: "uid-" + email})
	return nil
}

func (f *fakeBackend) SignOut(ctx context.Context) error {
	f.emit(backend.Event{})
	return nil
}

func (f *fakeBackend) SessionChanges(fn func(backend.Event)) func() {
	f.mu.Lock()
	f.subs = append(f.subs, fn)
	current := backend.Event{UID: f.uid}
	f.mu.Unlock()
	fn(current)
	return func() {}
}

func (f *fakeBackend) PutUserDocument(ctx context.Context, rec backend.UserRecord) error {
	f.docs = append(f.docs, rec)
	return nil
}

func (f *fakeBackend) QueryUsersPage(ctx context.Context, after *backend.Cursor, limit int) ([]backend.UserRecord, error) {
	return f.page, nil
}

func (f *fakeBackend) Upload(ctx context.Context, key string, data []byte) error {
	f.uploads[key] = data
	return nil
}

func (f *fakeBackend) PublicURL(ctx context.Context, key string) (string, error) {
	return "https://blobs.test/" + key, nil
}

func (f *fakeBackend) Online() bool { return f.online }

func newTestApp(t *testing.T) (*App, *fakeBackend) {
	t.Helper()
	f := newFakeBackend()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	a := &App{
		session:   session.NewController(f, f, f, f, logger),
		directory: directory.NewPaginator(f, logger, 10),
		reader:    bufio.NewReader(os.Stdin),
	}
	t.Cleanup(a.session.Close)
	return a, f
}

// scriptInputs replaces the input seams with a scripted sequence of text
// answers and a fixed password.
func scriptInputs(t *testing.T, answers []string, password string) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})

	i := 0
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if i >= len(answers) {
			t.Fatalf("unexpected extra prompt")
		}
		answer := answers[i]
		i++
		return answer, nil
	}
	getPassword = func(_ io.Writer) (string, error) { return password, nil }
}

func writeTempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "avatar.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF}, 0o600))
	return path
}

func TestRegisterCommand(t *testing.T) {
	a, f := newTestApp(t)
	scriptInputs(t, []string{"Alice", "alice@example.com", writeTempImage(t)}, "secret1")

	a.register(context.Background())

	require.Len(t, f.docs, 1)
	require.Equal(t, "new-uid", f.docs[0].ID)
	require.Equal(t, "Alice", f.docs[0].DisplayName)
	require.Contains(t, f.uploads, "avatars/new-uid")

	// Registration always hands the user back signed out.
	require.Equal(t, session.Unauthenticated, a.session.State().Phase)
}

func TestRegisterCommandWithoutImage(t *testing.T) {
	a, f := newTestApp(t)
	scriptInputs(t, []string{"Alice", "alice@example.com", ""}, "secret1")

	a.register(context.Background())

	require.Empty(t, f.docs)
	require.Empty(t, f.uploads)
	// The error was shown and cleared by the command.
	require.Empty(t, a.session.State().LastError)
}

func TestLoginCommandUsesHandoffEmail(t *testing.T) {
	a, f := newTestApp(t)
	scriptInputs(t, []string{"Alice", "alice@example.com", writeTempImage(t)}, "secret1")
	a.register(context.Background())

	// Empty answer at the email prompt accepts the prefilled address.
	scriptInputs(t, []string{""}, "secret1")
	a.login(context.Background())

	require.Equal(t, "alice@example.com", f.signInEmail)
	require.Equal(t, session.Authenticated, a.session.State().Phase)
}

func TestLoginCommandRejected(t *testing.T) {
	a, f := newTestApp(t)
	f.signInErr = &backend.CredentialError{Message: "invalid email or password"}
	scriptInputs(t, []string{"alice@example.com"}, "wrong")

	a.login(context.Background())

	require.Equal(t, session.Unauthenticated, a.session.State().Phase)
	// The command prints and clears the error.
	require.Empty(t, a.session.State().LastError)
}

func TestLogoutCommand(t *testing.T) {
	a, f := newTestApp(t)
	scriptInputs(t, []string{"alice@example.com"}, "secret1")
	a.login(context.Background())
	require.Equal(t, session.Authenticated, a.session.State().Phase)

	a.logout(context.Background())
	require.Equal(t, session.Unauthenticated, a.session.State().Phase)
	require.Equal(t, "", f.uid)
}
