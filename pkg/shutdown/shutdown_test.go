package shutdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager(t *testing.T) {
	m := NewManager()
	assert.False(t, m.IsShuttingDown())

	select {
	case <-m.Done():
		t.Fatal("done before shutdown")
	default:
	}

	assert.True(t, m.Shutdown())
	assert.False(t, m.Shutdown())
	assert.True(t, m.IsShuttingDown())
	<-m.Done()
}

func TestManager_Nil(t *testing.T) {
	var m *Manager
	assert.False(t, m.IsShuttingDown())
}
