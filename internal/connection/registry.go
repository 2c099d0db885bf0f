package connection

import "sync"

type registryEntry struct {
	id      HandlerID
	handler Handler
}

// registry maps event names to handlers in registration order.
type registry struct {
	mu       sync.Mutex
	nextID   HandlerID
	handlers map[string][]registryEntry
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string][]registryEntry)}
}

func (r *registry) add(event string, h Handler) HandlerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.handlers[event] = append(r.handlers[event], registryEntry{id: r.nextID, handler: h})
	return r.nextID
}

// remove drops the given handlers for event, or every handler for event when
// no ids are given.
func (r *registry) remove(event string, ids ...HandlerID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(ids) == 0 {
		delete(r.handlers, event)
		return
	}

	entries := r.handlers[event]
	kept := entries[:0:0]
	for _, e := range entries {
		if !containsID(ids, e.id) {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(r.handlers, event)
		return
	}
	r.handlers[event] = kept
}

// snapshot copies the handlers for event so they can run without the lock.
func (r *registry) snapshot(event string) []Handler {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.handlers[event]
	if len(entries) == 0 {
		return nil
	}
	out := make([]Handler, len(entries))
	for i, e := range entries {
		out[i] = e.handler
	}
	return out
}

func (r *registry) clear() {
	r.mu.Lock()
	r.handlers = make(map[string][]registryEntry)
	r.mu.Unlock()
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, entries := range r.handlers {
		n += len(entries)
	}
	return n
}

func containsID(ids []HandlerID, id HandlerID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
