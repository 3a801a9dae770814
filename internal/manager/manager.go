package manager

import (
	"log"
	"sync"
	"time"
)

// AppManager runs long-lived watchers and restarts them if they return or
// panic before being stopped.
type AppManager struct {
	mu    sync.Mutex
	stops []chan struct{}
	wg    sync.WaitGroup

	// RestartDelay is the pause before a returned watcher is started again.
	RestartDelay time.Duration
}

func (m *AppManager) restartDelay() time.Duration {
	if m.RestartDelay > 0 {
		return m.RestartDelay
	}
	return 2 * time.Second
}

func (m *AppManager) StartWatcher(f func(stop <-chan struct{})) {
	stop := make(chan struct{})
	m.mu.Lock()
	m.stops = append(m.stops, stop)
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("Watcher panic: %v", r)
					}
				}()
				f(stop)
			}()

			select {
			case <-stop:
				return
			case <-time.After(m.restartDelay()):
				log.Println("Restarting watcher...")
			}
		}
	}()
}

// StopAll signals every watcher and waits for them to return.
func (m *AppManager) StopAll() {
	m.mu.Lock()
	stops := m.stops
	m.stops = nil
	m.mu.Unlock()

	for _, s := range stops {
		close(s)
	}
	m.wg.Wait()
}
