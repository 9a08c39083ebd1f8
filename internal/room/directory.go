// Package room tracks which clients participate in which negotiation.
// The directory holds client identifiers only, never connection
// handles, so membership cleanup on disconnect is an explicit call.
package room

import (
	"sync"

	"github.com/samber/lo"
)

// Directory maps negotiation ids to member sets. A reverse index
// (client -> rooms) is kept under the same lock so leaving costs one
// lookup instead of a scan over every room.
type Directory struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{} // negotiationID -> clientID set
	rooms   map[string]map[string]struct{} // clientID -> negotiationID set
}

// NewDirectory creates an empty room directory.
func NewDirectory() *Directory {
	return &Directory{
		members: make(map[string]map[string]struct{}),
		rooms:   make(map[string]map[string]struct{}),
	}
}

// Join adds clientID to negotiationID, creating the room on first
// join. Joining a room twice is a no-op.
func (d *Directory) Join(clientID, negotiationID string) {
	if clientID == "" || negotiationID == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.members[negotiationID] == nil {
		d.members[negotiationID] = make(map[string]struct{})
	}
	d.members[negotiationID][clientID] = struct{}{}

	if d.rooms[clientID] == nil {
		d.rooms[clientID] = make(map[string]struct{})
	}
	d.rooms[clientID][negotiationID] = struct{}{}
}

// Leave removes clientID from every room it belongs to. Rooms left
// empty are pruned. Unknown clients are a no-op.
func (d *Directory) Leave(clientID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for negotiationID := range d.rooms[clientID] {
		if members, ok := d.members[negotiationID]; ok {
			delete(members, clientID)
			if len(members) == 0 {
				delete(d.members, negotiationID)
			}
		}
	}
	delete(d.rooms, clientID)
}

// Members returns a snapshot of the member ids of negotiationID.
// Unknown rooms yield an empty slice, not an error.
func (d *Directory) Members(negotiationID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return lo.Keys(d.members[negotiationID])
}

// Rooms returns a snapshot of the rooms clientID belongs to.
func (d *Directory) Rooms(clientID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return lo.Keys(d.rooms[clientID])
}

// Count returns the number of rooms with at least one member.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.members)
}
