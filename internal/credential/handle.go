package credential

import "sync"

// Handle is the single owner of a platform's in-memory Credential. Every
// component that reads or mutates the credential receives the same Handle;
// there is no package-level credential state.
type Handle struct {
	mu   sync.RWMutex
	cred Credential
}

// NewHandle wraps c in a Handle.
func NewHandle(c Credential) *Handle {
	return &Handle{cred: c.Clone()}
}

// Platform returns the platform of the held credential.
func (h *Handle) Platform() Platform {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cred.Platform
}

// Snapshot returns a copy that is safe to read without holding the lock.
func (h *Handle) Snapshot() Credential {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cred.Clone()
}

// Update applies fn to the held credential under the write lock and returns
// the resulting copy.
func (h *Handle) Update(fn func(*Credential)) Credential {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.cred)
	return h.cred.Clone()
}

// Replace swaps the held credential for c.
func (h *Handle) Replace(c Credential) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cred = c.Clone()
}
