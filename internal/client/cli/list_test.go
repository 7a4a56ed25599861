package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dpetukhov/rosterhub/internal/client/backend"
)

func TestListUsersCommand(t *testing.T) {
	a, f := newTestApp(t)
	now := time.Now()
	f.page = []backend.UserRecord{
		{ID: "u2", DisplayName: "Two", Email: "two@x.y", CreatedAt: now},
		{ID: "u1", DisplayName: "One", Email: "one@x.y", CreatedAt: now.Add(-time.Minute)},
	}

	a.listUsers(context.Background())

	st := a.directory.State()
	require.Len(t, st.Items, 2)
	require.True(t, st.Exhausted)
}

func TestMoreUsersAfterExhaustion(t *testing.T) {
	a, f := newTestApp(t)
	f.page = []backend.UserRecord{{ID: "u1", DisplayName: "One", CreatedAt: time.Now()}}
	a.listUsers(context.Background())

	// A short page exhausts the directory; more must not grow the listing.
	a.moreUsers(context.Background())
	require.Len(t, a.directory.State().Items, 1)
}

func TestGetStatus(t *testing.T) {
	a, _ := newTestApp(t)
	require.Equal(t, "", a.getStatus())

	a.Mode = ModeOnline
	require.Equal(t, "(online)", a.getStatus())

	scriptInputs(t, []string{"alice@example.com"}, "secret1")
	a.login(context.Background())
	require.Equal(t, "(uid-alice@example.com online)", a.getStatus())
}
