package visualizer

import "testing"

func TestPublishWithNoClientsDoesNotBlock(t *testing.T) {
	h := NewHub()
	h.Publish([]byte{1, 2, 3, 4})
	if h.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d, want 0", h.ClientCount())
	}
}
