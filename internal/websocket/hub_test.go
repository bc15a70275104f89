package websocket

import (
	"testing"

	"textile-erp/internal/logger"
)

func TestParseTopics(t *testing.T) {
	got := ParseTopics(" challan.converted, ,status.changed,")
	if len(got) != 2 {
		t.Fatalf("topics = %v, want 2", got)
	}
	for _, want := range []string{"challan.converted", "status.changed"} {
		if _, ok := got[want]; !ok {
			t.Errorf("missing %q", want)
		}
	}
	if len(ParseTopics("")) != 0 {
		t.Error("empty value should subscribe to everything")
	}
}

func TestClientWants(t *testing.T) {
	all := &client{}
	if !all.wants("status.changed") {
		t.Error("client without topics should receive every event")
	}
	some := &client{topics: ParseTopics("challan.converted")}
	if !some.wants("challan.converted") || some.wants("status.changed") {
		t.Error("topic filter not applied")
	}
}

func TestBroadcastDropsWhenQueueFull(t *testing.T) {
	h := NewHub(logger.Discard())
	for i := 0; i < cap(h.broadcast); i++ {
		if !h.Broadcast("status.changed", []byte("{}")) {
			t.Fatalf("message %d dropped before queue was full", i)
		}
	}
	if h.Broadcast("status.changed", []byte("{}")) {
		t.Error("broadcast on a full queue should report the drop")
	}
}
