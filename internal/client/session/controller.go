// Package session owns the client's authentication state. The Controller
// exposes register/login/logout operations and mirrors the identity
// backend's session-change stream into observable local state.
//
// The stream is the single source of truth: UID is assigned only by the
// stream consumer, never directly by an operation. Operations only drive
// the busy flag, the last-error message and the one-shot handoff email.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/dpetukhov/rosterhub/internal/client/backend"
	"github.com/dpetukhov/rosterhub/internal/logging"
)

// Phase is the controller's lifecycle state.
type Phase int

const (
	Unauthenticated Phase = iota
	Authenticating
	Authenticated
	LoggingOut
)

func (p Phase) String() string {
	switch p {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case LoggingOut:
		return "logging out"
	default:
		return "unauthenticated"
	}
}

// State is an immutable snapshot handed to observers.
type State struct {
	Phase     Phase
	UID       string
	Busy      bool
	LastError string
}

// User-facing messages for locally detected failures. Credential rejections
// keep the backend's own text instead.
const (
	MsgImageRequired = "a profile image is required"
	MsgOffline       = "no internet connection, please try again later"
	MsgUnexpected    = "something went wrong, please try again"
)

// avatarKeyPrefix is where profile images live in blob storage; the object
// key is derived from the new credential's id.
const avatarKeyPrefix = "avatars/"

// Controller is created once at process start and lives for the process
// lifetime; logout resets it in place. All methods are safe for concurrent
// use, and a second operation started while one is in flight is refused.
type Controller struct {
	identity backend.Identity
	docs     backend.Documents
	blobs    backend.Blobs
	probe    backend.Probe
	log      logging.Logger

	mu           sync.Mutex
	phase        Phase
	uid          string
	busy         bool
	lastErr      string
	handoffEmail string
	observers    map[int]func(State)
	nextObs      int
	unsubscribe  func()
}

// NewController wires the controller to its backends and subscribes to the
// session-change stream. Call Close to release the subscription.
func NewController(identity backend.Identity, docs backend.Documents, blobs backend.Blobs, probe backend.Probe, log logging.Logger) *Controller {
	c := &Controller{
		identity:  identity,
		docs:      docs,
		blobs:     blobs,
		probe:     probe,
		log:       log,
		observers: make(map[int]func(State)),
	}
	c.unsubscribe = identity.SessionChanges(c.onSessionEvent)
	return c
}

// Close releases the stream subscription. The controller keeps its last
// state but no longer follows backend session changes.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// State returns a snapshot of the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to be called with a state snapshot after every
// change, and returns an unsubscribe func. fn is called without internal
// locks held and must not block for long.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Register creates a credential, stores the profile image and document, and
// signs the fresh session back out so the caller always proceeds through an
// explicit login. On success the registered email is held for a one-shot
// handoff to the login form.
//
// Returns true only if every step succeeded; any failure lands in
// LastError. A missing image fails locally before any backend call.
func (c *Controller) Register(ctx context.Context, name, email, password string, image []byte) bool {
	if len(image) == 0 {
		c.fail(MsgImageRequired)
		return false
	}
	if !c.begin(Authenticating) {
		return false
	}
	if !c.probe.Online() {
		c.finish(MsgOffline)
		return false
	}

	uid, err := c.identity.CreateCredential(ctx, email, password)
	if err != nil {
		c.finish(c.message(err))
		return false
	}

	// The backend now holds a fresh signed-in session. Whatever happens
	// below, sign it out before returning: registration must never leave
	// the caller authenticated, and a half-registered credential must not
	// keep a live session either.
	key := avatarKeyPrefix + uid
	if err := c.blobs.Upload(ctx, key, image); err != nil {
		c.rollbackSignOut(ctx)
		c.finish(c.message(err))
		return false
	}
	url, err := c.blobs.PublicURL(ctx, key)
	if err != nil {
		c.rollbackSignOut(ctx)
		c.finish(c.message(err))
		return false
	}
	rec := backend.UserRecord{
		ID:              uid,
		DisplayName:     name,
		Email:           email,
		ProfileImageURL: url,
		// CreatedAt is assigned by the server on write.
	}
	if err := c.docs.PutUserDocument(ctx, rec); err != nil {
		c.rollbackSignOut(ctx)
		c.finish(c.message(err))
		return false
	}

	c.mu.Lock()
	c.handoffEmail = email
	c.mu.Unlock()

	if err := c.identity.SignOut(ctx); err != nil {
		c.finish(c.message(err))
		return false
	}
	c.finish("")
	return true
}

// Login verifies connectivity and submits credentials. It does not assign
// UID; a true return means the backend accepted the credentials, and the
// session-change stream will deliver the identity.
func (c *Controller) Login(ctx context.Context, email, password string) bool {
	if !c.begin(Authenticating) {
		return false
	}
	c.mu.Lock()
	c.handoffEmail = ""
	c.mu.Unlock()

	if !c.probe.Online() {
		c.finish(MsgOffline)
		return false
	}
	if err := c.identity.SignIn(ctx, email, password); err != nil {
		c.finish(c.message(err))
		return false
	}
	c.finish("")
	return true
}

// Logout requests backend sign-out. UID clears when the stream delivers
// the signed-out event.
func (c *Controller) Logout(ctx context.Context) {
	if !c.begin(LoggingOut) {
		return
	}
	c.mu.Lock()
	c.handoffEmail = ""
	c.mu.Unlock()

	if err := c.identity.SignOut(ctx); err != nil {
		c.finish(c.message(err))
		return
	}
	c.finish("")
}

// ClearError discards the last error message.
func (c *Controller) ClearError() {
	c.mu.Lock()
	changed := c.lastErr != ""
	c.lastErr = ""
	snap := c.snapshotLocked()
	obs := c.observersLocked()
	c.mu.Unlock()
	if changed {
		notify(snap, obs)
	}
}

// ConsumeHandoffEmail returns the email of the last successful registration
// exactly once: the value is cleared atomically with the read.
func (c *Controller) ConsumeHandoffEmail() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	email := c.handoffEmail
	c.handoffEmail = ""
	return email, email != ""
}

// onSessionEvent mirrors the backend stream into local state. This is the
// only place UID is assigned.
func (c *Controller) onSessionEvent(ev backend.Event) {
	c.mu.Lock()
	if ev.SignedIn() {
		c.phase = Authenticated
		c.uid = ev.UID
		c.lastErr = ""
	} else {
		c.phase = Unauthenticated
		c.uid = ""
	}
	snap := c.snapshotLocked()
	obs := c.observersLocked()
	c.mu.Unlock()
	notify(snap, obs)
}

// begin marks an operation as in flight. It refuses to start while another
// operation is busy, so a double-tap cannot interleave two flows.
func (c *Controller) begin(next Phase) bool {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return false
	}
	c.busy = true
	c.lastErr = ""
	c.phase = next
	snap := c.snapshotLocked()
	obs := c.observersLocked()
	c.mu.Unlock()
	notify(snap, obs)
	return true
}

// finish clears the busy flag, records the outcome and settles the phase
// from the current UID (the stream may already have resolved it).
func (c *Controller) finish(errMsg string) {
	c.mu.Lock()
	c.busy = false
	c.lastErr = errMsg
	if c.uid == "" {
		c.phase = Unauthenticated
	} else {
		c.phase = Authenticated
	}
	snap := c.snapshotLocked()
	obs := c.observersLocked()
	c.mu.Unlock()
	notify(snap, obs)
}

// fail records a locally detected error without starting an operation.
func (c *Controller) fail(msg string) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return
	}
	c.lastErr = msg
	snap := c.snapshotLocked()
	obs := c.observersLocked()
	c.mu.Unlock()
	notify(snap, obs)
}

// rollbackSignOut signs the half-registered session out, best effort.
func (c *Controller) rollbackSignOut(ctx context.Context) {
	if err := c.identity.SignOut(ctx); err != nil {
		c.log.Warn(ctx, "sign-out after failed registration", "error", err)
	}
}

// message converts an operation error to its user-facing text. Credential
// rejections pass the backend's message through verbatim.
func (c *Controller) message(err error) string {
	var cred *backend.CredentialError
	switch {
	case errors.As(err, &cred):
		return cred.Message
	case errors.Is(err, backend.ErrOffline):
		return MsgOffline
	default:
		return MsgUnexpected
	}
}

func (c *Controller) snapshotLocked() State {
	return State{Phase: c.phase, UID: c.uid, Busy: c.busy, LastError: c.lastErr}
}

func (c *Controller) observersLocked() []func(State) {
	obs := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		obs = append(obs, fn)
	}
	return obs
}

func notify(snap State, obs []func(State)) {
	for _, fn := range obs {
		fn(snap)
	}
}
