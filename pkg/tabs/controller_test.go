package tabs

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/platforms"
)

func TestNewController_StartsOnDiscord(t *testing.T) {
	c := NewController(platforms.NewHivemindRegistry(false))

	assert.Equal(t, 0, c.Active().Index)
	assert.Equal(t, models.PlatformDiscord, c.Active().Platform)
}

func TestSelect(t *testing.T) {
	c := NewController(platforms.NewHivemindRegistry(false))

	ticket, err := c.Select(2)
	require.NoError(t, err)
	assert.Equal(t, 2, ticket.Index)
	assert.Equal(t, models.PlatformNotion, ticket.Tab.Platform)
	assert.Equal(t, uint64(1), ticket.Generation)
	assert.True(t, c.Current(ticket))
	assert.Equal(t, 2, c.Active().Index)
}

func TestSelect_RejectsInvalidTabsWithoutStateChange(t *testing.T) {
	c := NewController(platforms.NewHivemindRegistry(false))
	first, err := c.Select(1)
	require.NoError(t, err)

	for _, index := range []int{-1, 4, 7, 8, 9} {
		_, err := c.Select(index)
		assert.Error(t, err, index)
	}

	assert.Equal(t, 1, c.Active().Index)
	assert.True(t, c.Current(first))
}

func TestCurrent_StaleTicket(t *testing.T) {
	c := NewController(platforms.NewHivemindRegistry(false))

	github, err := c.Select(1)
	require.NoError(t, err)
	notion, err := c.Select(2)
	require.NoError(t, err)

	assert.False(t, c.Current(github))
	assert.True(t, c.Current(notion))

	refreshed := c.Refresh()
	assert.False(t, c.Current(notion))
	assert.True(t, c.Current(refreshed))
	assert.Equal(t, 2, refreshed.Index)
}

func TestSelect_GenerationsAreMonotonic(t *testing.T) {
	c := NewController(platforms.NewHivemindRegistry(false))

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[uint64]bool{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket, err := c.Select(i % 4)
			require.NoError(t, err)
			mu.Lock()
			seen[ticket.Generation] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Len(t, seen, 50)
}
