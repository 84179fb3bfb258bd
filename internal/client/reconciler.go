// Package client holds the browser-side reconciliation state machine: the
// owned copy of session and license state, and the transitions driven by the
// server's invalidation codes.
package client

import (
	"context"
	"sync"
)

// Phase is what the UI should be showing.
type Phase string

const (
	PhaseNeedsLicense  Phase = "needs_license"
	PhaseNeedsReauth   Phase = "needs_reauth"
	PhaseNeedsResource Phase = "needs_resource"
	PhaseReady         Phase = "ready"
)

// Stable invalidation codes reported by the server. Mirrors the API error
// contract.
const (
	CodeSessionInvalid  = "session_invalid"
	CodeLicenseInvalid  = "license_invalid"
	CodeReauthRequired  = "reauth_required"
	CodeResourceDeleted = "resource_deleted"
)

type UserInfo struct {
	ExternalID        string
	WorkspaceName     string
	HasTargetResource bool
}

// Snapshot is what survives a reload.
type Snapshot struct {
	SessionToken string
	LicenseKey   string
}

// Storage is the persistent slot behind the reconciler. Nothing else reads
// it; components go through the reconciler.
type Storage interface {
	Load() (Snapshot, error)
	Store(Snapshot) error
	Clear() error
}

// Reconciler owns {session token, license key, user} with the lifecycle
// load -> valid -> cleared. All state changes go through it, every transition
// is idempotent, and results of requests started before a logout are
// discarded via the epoch counter.
type Reconciler struct {
	mu      sync.Mutex
	storage Storage
	bus     *Bus
	events  <-chan Event

	sessionToken string
	licenseKey   string
	user         *UserInfo
	epoch        uint64
}

func NewReconciler(storage Storage, bus *Bus) (*Reconciler, error) {
	r := &Reconciler{
		storage: storage,
		bus:     bus,
		events:  bus.Subscribe(),
	}

	snap, err := storage.Load()
	if err != nil {
		return nil, err
	}
	r.sessionToken = snap.SessionToken
	r.licenseKey = snap.LicenseKey
	return r, nil
}

// Run drains cross-tab events until ctx is done. Single consumer; the
// reconciler does its own locking so the host loop needs none.
func (r *Reconciler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-r.events:
			if !ok {
				return
			}
			r.handleEvent(e)
		}
	}
}

func (r *Reconciler) handleEvent(e Event) {
	switch e.Type {
	case EventLogout:
		// Another tab logged out. Clear locally without rebroadcasting so
		// duplicate delivery converges instead of ping-ponging.
		r.mu.Lock()
		r.clearAllLocked()
		r.mu.Unlock()
	case EventStateChanged:
		r.mu.Lock()
		if snap, err := r.storage.Load(); err == nil {
			r.sessionToken = snap.SessionToken
			r.licenseKey = snap.LicenseKey
		}
		r.mu.Unlock()
	}
}

// SetAuthorization installs a completed authorization: called after a
// successful callback exchange.
func (r *Reconciler) SetAuthorization(sessionToken, licenseKey string, user UserInfo) {
	r.mu.Lock()
	r.sessionToken = sessionToken
	r.licenseKey = licenseKey
	u := user
	r.user = &u
	r.persistLocked()
	r.mu.Unlock()

	r.bus.Publish(Event{Type: EventStateChanged})
}

// SetUser updates the cached user info, e.g. after GET /user/info.
func (r *Reconciler) SetUser(user UserInfo) {
	r.mu.Lock()
	u := user
	r.user = &u
	r.mu.Unlock()
}

// ApplyOutcome reacts to a server-reported invalidation code. Unknown codes
// are ignored; applying the same code twice is a no-op.
func (r *Reconciler) ApplyOutcome(code string) {
	r.mu.Lock()
	switch code {
	case CodeSessionInvalid, CodeReauthRequired:
		// License stays: it is already bound to this user.
		r.sessionToken = ""
		r.user = nil
		r.persistLocked()
	case CodeLicenseInvalid:
		r.sessionToken = ""
		r.licenseKey = ""
		r.user = nil
		r.persistLocked()
	case CodeResourceDeleted:
		if r.user != nil {
			r.user.HasTargetResource = false
		}
	default:
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.bus.Publish(Event{Type: EventStateChanged})
}

// Logout clears everything and tells the other tabs.
func (r *Reconciler) Logout() {
	r.mu.Lock()
	r.clearAllLocked()
	r.mu.Unlock()

	r.bus.Publish(Event{Type: EventLogout})
}

func (r *Reconciler) clearAllLocked() {
	r.sessionToken = ""
	r.licenseKey = ""
	r.user = nil
	r.epoch++
	r.storage.Clear()
}

func (r *Reconciler) persistLocked() {
	r.storage.Store(Snapshot{SessionToken: r.sessionToken, LicenseKey: r.licenseKey})
}

// BeginRequest marks the start of a network call. The returned epoch must be
// passed to Complete with the result.
func (r *Reconciler) BeginRequest() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch
}

// Complete applies the result of an in-flight call unless a logout happened
// in between, in which case the result is discarded and Complete reports
// false. The epoch check and apply run as one critical section, so a logout
// can never interleave between them; apply must not call back into the
// reconciler.
func (r *Reconciler) Complete(epoch uint64, apply func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if epoch != r.epoch {
		return false
	}
	apply()
	return true
}

func (r *Reconciler) SessionToken() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionToken, r.sessionToken != ""
}

func (r *Reconciler) LicenseKey() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.licenseKey, r.licenseKey != ""
}

func (r *Reconciler) User() (UserInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.user == nil {
		return UserInfo{}, false
	}
	return *r.user, true
}

// Phase derives what the UI should present from the owned state.
func (r *Reconciler) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.sessionToken == "" && r.licenseKey == "":
		return PhaseNeedsLicense
	case r.sessionToken == "":
		return PhaseNeedsReauth
	case r.user != nil && !r.user.HasTargetResource:
		return PhaseNeedsResource
	default:
		return PhaseReady
	}
}
