package camera

import "sync"

// Manager holds the preview mirror state and notifies on changes.
type Manager struct {
	mu       sync.RWMutex
	mirrored bool

	// OnMirrorChange is called after every change with the new state.
	OnMirrorChange func(mirrored bool)
}

// NewManager creates a manager with the given initial mirror state.
func NewManager(mirrored bool) *Manager {
	return &Manager{mirrored: mirrored}
}

// Mirrored returns the current mirror state.
func (m *Manager) Mirrored() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mirrored
}

// SetMirrored sets the mirror state.
func (m *Manager) SetMirrored(mirrored bool) {
	m.mu.Lock()
	m.mirrored = mirrored
	callback := m.OnMirrorChange
	m.mu.Unlock()

	if callback != nil {
		callback(mirrored)
	}
}

// Toggle flips the mirror state and returns the new value.
func (m *Manager) Toggle() bool {
	m.mu.Lock()
	m.mirrored = !m.mirrored
	mirrored := m.mirrored
	callback := m.OnMirrorChange
	m.mu.Unlock()

	if callback != nil {
		callback(mirrored)
	}
	return mirrored
}
