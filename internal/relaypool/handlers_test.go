package relaypool

import (
	"testing"

	"github.com/relaymesh/relaypool-go/pkg/connection"
	relaypool "github.com/relaymesh/relaypool-go/pkg/relaypool"
)

func TestHandlerRegistry(t *testing.T) {
	r := newHandlerRegistry()

	var firstCalls, secondCalls int
	first := func(relaypool.RelayAddress, connection.Event) { firstCalls++ }
	second := func(relaypool.RelayAddress, connection.Event) { secondCalls++ }

	if !r.register("sub-1", first) {
		t.Fatal("Expected first registration to succeed")
	}
	// Duplicate id is a silent no-op preserving the first registration.
	if r.register("sub-1", second) {
		t.Error("Expected duplicate registration to be refused")
	}
	if r.size() != 1 {
		t.Errorf("Expected 1 handler, got %d", r.size())
	}

	for _, h := range r.snapshot() {
		h("", connection.Event{})
	}
	if firstCalls != 1 || secondCalls != 0 {
		t.Errorf("Expected only the first handler to be retained, got first=%d second=%d", firstCalls, secondCalls)
	}

	if !r.unregister("sub-1") {
		t.Error("Expected unregister of known id to report true")
	}
	if r.unregister("sub-1") {
		t.Error("Expected unregister of unknown id to report false")
	}
	if r.size() != 0 {
		t.Errorf("Expected empty registry, got %d", r.size())
	}
}

func TestHandlerRegistrySnapshotOrder(t *testing.T) {
	r := newHandlerRegistry()

	var order []string
	mk := func(id string) relaypool.MessageHandler {
		return func(relaypool.RelayAddress, connection.Event) { order = append(order, id) }
	}
	r.register("c", mk("c"))
	r.register("a", mk("a"))
	r.register("b", mk("b"))

	for _, h := range r.snapshot() {
		h("", connection.Event{})
	}
	want := []string{"c", "a", "b"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected registration order %v, got %v", want, order)
		}
	}
}
