package ws

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPresenceEdges(t *testing.T) {
	dev := &fakeDevice{}
	hub := NewHub(dev)

	hub.Register(&Session{id: "a"})
	hub.Register(&Session{id: "b"})
	hub.Unregister("a")
	hub.Unregister("a")
	hub.Unregister("b")

	_, presence := dev.snapshot()
	assert.Equal(t, []bool{true, false}, presence)
	assert.Zero(t, hub.Count())
}

func TestHubPresenceOrderUnderChurn(t *testing.T) {
	dev := &fakeDevice{}
	hub := NewHub(dev)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("%d-%d", g, i)
				hub.Register(&Session{id: id})
				hub.Unregister(id)
			}
		}(g)
	}
	wg.Wait()

	_, presence := dev.snapshot()
	require.NotEmpty(t, presence)
	for i, connected := range presence {
		assert.Equal(t, i%2 == 0, connected, "presence call %d out of order", i)
	}
	assert.False(t, presence[len(presence)-1])
	assert.Zero(t, hub.Count())
}
