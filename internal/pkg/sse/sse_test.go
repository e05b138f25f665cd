package sse

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastAndCancel(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe("run-1")
	b, cancelB := h.Subscribe("run-1")
	other, cancelOther := h.Subscribe("run-2")
	defer cancelOther()

	h.Broadcast("run-1", Message{Event: "stage.started", Data: "build"})
	assert.Equal(t, "build", (<-a).Data)
	assert.Equal(t, "build", (<-b).Data)
	assert.Empty(t, other)

	cancelA()
	cancelA()
	_, ok := <-a
	assert.False(t, ok)
	assert.Equal(t, 1, h.Subscribers("run-1"))

	cancelB()
	assert.Equal(t, 0, h.Subscribers("run-1"))
}

func TestHub_DropsForSlowSubscribers(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("run-1")
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		h.Broadcast("run-1", Message{Event: "tick", Data: i})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("run-1")
	h.Close()
	_, ok := <-ch
	assert.False(t, ok)
	cancel()

	late, _ := h.Subscribe("run-1")
	_, ok = <-late
	assert.False(t, ok)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, Write(w, Message{Event: "run.finished", Data: map[string]string{"status": "succeeded"}}))
	require.NoError(t, Heartbeat(w))
	assert.Equal(t, "event: run.finished\ndata: {\"status\":\"succeeded\"}\n\n: ping\n\n", buf.String())
}
