package utils

import (
	"sync"
)

// OptionalMutex is a sync.Mutex that can be switched off for managers whose consumers promise
// external synchronization
type OptionalMutex struct {
	Mutex    sync.Mutex
	UseMutex bool
}

func (m *OptionalMutex) Lock() {
	if m.UseMutex {
		m.Mutex.Lock()
	}
}

func (m *OptionalMutex) Unlock() {
	if m.UseMutex {
		m.Mutex.Unlock()
	}
}

// Do runs f while holding the mutex
func (m *OptionalMutex) Do(f func()) {
	m.Lock()
	defer m.Unlock()

	f()
}
