package relaypool

import (
	relaypool "github.com/relaymesh/relaypool-go/pkg/relaypool"
)

// handlerRegistry maps subscription ids to handlers. The id keys exist for
// registration dedup only: fan-out delivers every inbound event to every
// registered handler, and filtering by subscription id is the handler's own
// business. Not internally synchronized; owned by the pool.
type handlerRegistry struct {
	handlers map[string]relaypool.MessageHandler
	order    []string
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{
		handlers: make(map[string]relaypool.MessageHandler),
	}
}

// register stores the handler under the subscription id. Registering a
// duplicate id is a no-op that keeps the first registration; returns false
// in that case.
func (r *handlerRegistry) register(subscriptionID string, handler relaypool.MessageHandler) bool {
	if _, ok := r.handlers[subscriptionID]; ok {
		return false
	}
	r.handlers[subscriptionID] = handler
	r.order = append(r.order, subscriptionID)
	return true
}

// unregister removes the handler for the subscription id, reporting whether
// one was registered.
func (r *handlerRegistry) unregister(subscriptionID string) bool {
	if _, ok := r.handlers[subscriptionID]; !ok {
		return false
	}
	delete(r.handlers, subscriptionID)
	for i, id := range r.order {
		if id == subscriptionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// snapshot returns the registered handlers in registration order. The pool
// takes a snapshot under its lock and invokes the handlers after releasing
// it.
func (r *handlerRegistry) snapshot() []relaypool.MessageHandler {
	out := make([]relaypool.MessageHandler, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.handlers[id])
	}
	return out
}

// size returns the number of registered handlers.
func (r *handlerRegistry) size() int {
	return len(r.handlers)
}
