package guestmem

import (
	"sync"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
)

// OutOfRangeError is returned when an access falls outside of guest memory
var OutOfRangeError error = errors.New("guest memory access is out of range")

// PhysicalMemory is guest physical memory as seen by the texture cache
type PhysicalMemory interface {
	// GetSpan returns a copy of the bytes backing r. Unmapped spans read as zero.
	GetSpan(r MultiRange) ([]byte, error)
	// GetWritableRegion returns a buffer holding the current contents of r that is written back
	// when the region is closed. Untracked writes do not mark tracking handles dirty.
	GetWritableRegion(r MultiRange, tracked bool) (*WritableRegion, error)
}

// Tracker is implemented by physical memories that can report CPU writes to a range
type Tracker interface {
	BeginTracking(r MultiRange) TrackingHandle
}

// TrackingHandle observes writes to a range of guest memory
type TrackingHandle interface {
	// Dirty reports whether the range was written since the handle was last reprotected
	Dirty() bool
	Reprotect()
	Dispose()
}

// WritableRegion is a scratch copy of guest memory that is committed back on Close
type WritableRegion struct {
	Memory []byte
	commit func(data []byte) error
}

// NewWritableRegion wraps data so that commit receives it when the region is closed
func NewWritableRegion(data []byte, commit func(data []byte) error) *WritableRegion {
	return &WritableRegion{Memory: data, commit: commit}
}

func (r *WritableRegion) Close() error {
	if r.commit == nil {
		return nil
	}

	commit := r.commit
	r.commit = nil
	return commit(r.Memory)
}

// Memory is a flat byte array of guest physical memory with write tracking
type Memory struct {
	mutex sync.RWMutex
	data  []byte

	nextHandleID uint64
	handles      *swiss.Map[uint64, *memoryHandle]
}

var _ PhysicalMemory = &Memory{}
var _ Tracker = &Memory{}

// New allocates size bytes of zeroed guest memory
func New(size uint64) *Memory {
	return &Memory{
		data:    make([]byte, size),
		handles: swiss.NewMap[uint64, *memoryHandle](8),
	}
}

func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

func (m *Memory) checkRange(r Range) error {
	if r.Address == InvalidAddress {
		return nil
	}
	if r.EndAddress() > uint64(len(m.data)) || r.EndAddress() < r.Address {
		return cerrors.Wrapf(OutOfRangeError, "span 0x%x+%d exceeds %d bytes of guest memory", r.Address, r.Size, len(m.data))
	}
	return nil
}

// Read copies guest memory starting at address into data
func (m *Memory) Read(address uint64, data []byte) error {
	r := Range{Address: address, Size: uint64(len(data))}
	if err := m.checkRange(r); err != nil {
		return err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	copy(data, m.data[address:])
	return nil
}

// Write stores data at address on behalf of the guest CPU, marking overlapping tracking handles dirty
func (m *Memory) Write(address uint64, data []byte) error {
	r := Range{Address: address, Size: uint64(len(data))}
	if err := m.checkRange(r); err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	copy(m.data[address:], data)
	m.signalWrite(SingleRange(address, uint64(len(data))))
	return nil
}

func (m *Memory) signalWrite(r MultiRange) {
	m.handles.Iter(func(id uint64, handle *memoryHandle) (stop bool) {
		if handle.tracked.OverlapsWith(r) {
			handle.dirty = true
		}
		return false
	})
}

func (m *Memory) GetSpan(r MultiRange) ([]byte, error) {
	for i := 0; i < r.Count(); i++ {
		if err := m.checkRange(r.SubRange(i)); err != nil {
			return nil, err
		}
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	output := make([]byte, r.Size())
	offset := uint64(0)
	for i := 0; i < r.Count(); i++ {
		sub := r.SubRange(i)
		if sub.Address != InvalidAddress {
			copy(output[offset:offset+sub.Size], m.data[sub.Address:sub.EndAddress()])
		}
		offset += sub.Size
	}

	return output, nil
}

func (m *Memory) GetWritableRegion(r MultiRange, tracked bool) (*WritableRegion, error) {
	data, err := m.GetSpan(r)
	if err != nil {
		return nil, err
	}

	return NewWritableRegion(data, func(data []byte) error {
		m.mutex.Lock()
		defer m.mutex.Unlock()

		offset := uint64(0)
		for i := 0; i < r.Count(); i++ {
			sub := r.SubRange(i)
			if sub.Address != InvalidAddress {
				copy(m.data[sub.Address:sub.EndAddress()], data[offset:offset+sub.Size])
			}
			offset += sub.Size
		}

		if tracked {
			m.signalWrite(r)
		}
		return nil
	}), nil
}

// BeginTracking returns a handle that reports CPU writes to r. New handles start dirty so the first
// synchronization always loads the range.
func (m *Memory) BeginTracking(r MultiRange) TrackingHandle {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.nextHandleID++
	handle := &memoryHandle{
		memory:  m,
		id:      m.nextHandleID,
		tracked: r,
		dirty:   true,
	}
	m.handles.Put(handle.id, handle)
	return handle
}

// HandleCount returns the number of live tracking handles
func (m *Memory) HandleCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.handles.Count()
}

type memoryHandle struct {
	memory  *Memory
	id      uint64
	tracked MultiRange
	dirty   bool
}

func (h *memoryHandle) Dirty() bool {
	h.memory.mutex.RLock()
	defer h.memory.mutex.RUnlock()

	return h.dirty
}

func (h *memoryHandle) Reprotect() {
	h.memory.mutex.Lock()
	defer h.memory.mutex.Unlock()

	h.dirty = false
}

func (h *memoryHandle) Dispose() {
	h.memory.mutex.Lock()
	defer h.memory.mutex.Unlock()

	h.memory.handles.Delete(h.id)
}
