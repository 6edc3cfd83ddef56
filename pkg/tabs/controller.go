// Package tabs tracks which platform tab a user has open and hands out
// generation tickets so only the newest fetch may update the screen.
package tabs

import (
	"sync"

	"github.com/Ramsey-B/clover/pkg/platforms"
)

// Ticket identifies one tab activation
type Ticket struct {
	Index      int           `json:"index"`
	Generation uint64        `json:"generation"`
	Tab        platforms.Tab `json:"tab"`
}

type Controller struct {
	mu         sync.Mutex
	registry   *platforms.Registry
	active     int
	generation uint64
}

// NewController starts on the first enabled tab (Discord)
func NewController(registry *platforms.Registry) *Controller {
	c := &Controller{registry: registry}
	for _, tab := range registry.Tabs() {
		if tab.Enabled {
			c.active = tab.Index
			break
		}
	}
	return c
}

// Select activates the tab at index. Out-of-range and disabled tabs return an
// error and leave the state untouched.
func (c *Controller) Select(index int) (Ticket, error) {
	tab, err := c.registry.Selectable(index)
	if err != nil {
		return Ticket{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = index
	c.generation++
	return Ticket{Index: index, Generation: c.generation, Tab: tab}, nil
}

// Refresh issues a new ticket for the active tab, superseding any in-flight one
func (c *Controller) Refresh() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	return Ticket{Index: c.active, Generation: c.generation, Tab: c.registry.Tabs()[c.active]}
}

// Current reports whether the ticket is still the newest one issued
func (c *Controller) Current(ticket Ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ticket.Generation == c.generation && ticket.Index == c.active
}

// Active returns the active tab
func (c *Controller) Active() platforms.Tab {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.registry.Tabs()[c.active]
}

func (c *Controller) Registry() *platforms.Registry {
	return c.registry
}
