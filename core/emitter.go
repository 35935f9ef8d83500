package controller

import (
	"slices"
	"sync"
)

// Observer receives every view change in order, from a single goroutine.
type Observer func(View)

type observerEntry struct {
	id       uint64
	observer Observer
}

// viewEmitter queues view snapshots and delivers them to observers off the
// controller's lock, so a slow observer never stalls frame application.
type viewEmitter struct {
	mu        sync.Mutex
	observers []observerEntry
	nextID    uint64
	pending   []View

	updateSignal chan struct{}
	closeCh      chan struct{}
	done         chan struct{}
	closeOnce    sync.Once
}

func newViewEmitter() *viewEmitter {
	e := &viewEmitter{
		updateSignal: make(chan struct{}, 1),
		closeCh:      make(chan struct{}),
		done:         make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *viewEmitter) subscribe(observer Observer) (unsubscribe func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.observers = append(e.observers, observerEntry{id: id, observer: observer})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.observers = slices.DeleteFunc(e.observers, func(entry observerEntry) bool { return entry.id == id })
	}
}

func (e *viewEmitter) publish(view View) {
	e.mu.Lock()
	if len(e.observers) == 0 {
		e.mu.Unlock()
		return
	}
	e.pending = append(e.pending, view)
	e.mu.Unlock()

	select {
	case e.updateSignal <- struct{}{}:
	default:
	}
}

func (e *viewEmitter) run() {
	defer close(e.done)
	for {
		select {
		case <-e.updateSignal:
			e.deliver()
		case <-e.closeCh:
			e.deliver()
			return
		}
	}
}

func (e *viewEmitter) deliver() {
	for {
		e.mu.Lock()
		if len(e.pending) == 0 {
			e.mu.Unlock()
			return
		}
		view := e.pending[0]
		e.pending = e.pending[1:]
		observers := slices.Clone(e.observers)
		e.mu.Unlock()

		for _, entry := range observers {
			entry.observer(view)
		}
	}
}

// close flushes queued views and stops delivery.
func (e *viewEmitter) close() {
	e.closeOnce.Do(func() { close(e.closeCh) })
	<-e.done
}
