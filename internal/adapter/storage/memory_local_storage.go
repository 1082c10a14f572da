package storage

import (
	"context"
	"sync"

	"github.com/maspithik/angkringan/internal/core/domain"
)

// MemoryDevices keeps device storage in process, for single-node runs and
// tests. Events reach each watcher asynchronously and in write order.
type MemoryDevices struct {
	mu      sync.Mutex
	devices map[string]*memoryDevice
}

func NewMemoryDevices() *MemoryDevices {
	return &MemoryDevices{devices: make(map[string]*memoryDevice)}
}

// View returns tabID's view of deviceID's storage.
func (m *MemoryDevices) View(deviceID, tabID string) *MemoryLocalStorage {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[deviceID]
	if !ok {
		d = &memoryDevice{items: make(map[string]string), watchers: make(map[*memoryWatcher]struct{})}
		m.devices[deviceID] = d
	}
	return &MemoryLocalStorage{device: d, tabID: tabID}
}

type memoryDevice struct {
	mu       sync.Mutex
	items    map[string]string
	watchers map[*memoryWatcher]struct{}
}

// broadcast is called with d.mu held so every watcher queues events in the
// same order as the writes.
func (d *memoryDevice) broadcast(ev domain.StorageEvent) {
	for w := range d.watchers {
		if w.tabID != ev.Origin {
			w.enqueue(ev)
		}
	}
}

type MemoryLocalStorage struct {
	device *memoryDevice
	tabID  string
}

func (s *MemoryLocalStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	v, ok := s.device.items[key]
	return v, ok, nil
}

func (s *MemoryLocalStorage) SetItem(ctx context.Context, key, value string) error {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	s.device.items[key] = value
	s.device.broadcast(domain.StorageEvent{Key: key, NewValue: &value, Origin: s.tabID})
	return nil
}

func (s *MemoryLocalStorage) RemoveItem(ctx context.Context, key string) error {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	delete(s.device.items, key)
	s.device.broadcast(domain.StorageEvent{Key: key, Origin: s.tabID})
	return nil
}

func (s *MemoryLocalStorage) Watch(ctx context.Context, fn func(domain.StorageEvent)) (func(), error) {
	w := &memoryWatcher{
		tabID: s.tabID,
		fn:    fn,
		wake:  make(chan struct{}, 1),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	s.device.mu.Lock()
	s.device.watchers[w] = struct{}{}
	s.device.mu.Unlock()
	go w.run()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.device.mu.Lock()
			delete(s.device.watchers, w)
			s.device.mu.Unlock()
			close(w.quit)
			<-w.done
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-w.done:
		}
	}()
	return stop, nil
}

type memoryWatcher struct {
	tabID string
	fn    func(domain.StorageEvent)

	mu    sync.Mutex
	queue []domain.StorageEvent
	wake  chan struct{}
	quit  chan struct{}
	done  chan struct{}
}

func (w *memoryWatcher) enqueue(ev domain.StorageEvent) {
	w.mu.Lock()
	w.queue = append(w.queue, ev)
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *memoryWatcher) run() {
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return
		case <-w.wake:
		}
		for {
			w.mu.Lock()
			if len(w.queue) == 0 {
				w.mu.Unlock()
				break
			}
			ev := w.queue[0]
			w.queue = w.queue[1:]
			w.mu.Unlock()
			w.fn(ev)
		}
	}
}
