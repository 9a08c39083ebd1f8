package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectory_JoinAndMembers(t *testing.T) {
	d := NewDirectory()

	d.Join("vendor-1", "neg-1")
	d.Join("buyer-1", "neg-1")

	assert.ElementsMatch(t, []string{"vendor-1", "buyer-1"}, d.Members("neg-1"))
	assert.Equal(t, 1, d.Count())
}

func TestDirectory_JoinIsIdempotent(t *testing.T) {
	d := NewDirectory()

	d.Join("vendor-1", "neg-1")
	d.Join("vendor-1", "neg-1")

	assert.Equal(t, []string{"vendor-1"}, d.Members("neg-1"))
}

func TestDirectory_JoinIgnoresEmptyIdentifiers(t *testing.T) {
	d := NewDirectory()

	d.Join("", "neg-1")
	d.Join("vendor-1", "")

	assert.Equal(t, 0, d.Count())
	assert.Empty(t, d.Rooms("vendor-1"))
}

func TestDirectory_LeaveRemovesFromAllRooms(t *testing.T) {
	d := NewDirectory()

	d.Join("vendor-1", "neg-1")
	d.Join("vendor-1", "neg-2")
	d.Join("buyer-1", "neg-1")

	d.Leave("vendor-1")

	assert.Equal(t, []string{"buyer-1"}, d.Members("neg-1"))
	assert.Empty(t, d.Members("neg-2"))
	assert.Empty(t, d.Rooms("vendor-1"))
}

func TestDirectory_EmptyRoomsArePruned(t *testing.T) {
	d := NewDirectory()

	d.Join("vendor-1", "neg-1")
	d.Leave("vendor-1")

	assert.Equal(t, 0, d.Count())
}

func TestDirectory_LeaveUnknownClientIsNoOp(t *testing.T) {
	d := NewDirectory()

	d.Join("vendor-1", "neg-1")
	d.Leave("stranger")

	assert.Equal(t, []string{"vendor-1"}, d.Members("neg-1"))
}

func TestDirectory_MembersOfUnknownRoomIsEmpty(t *testing.T) {
	d := NewDirectory()
	assert.Empty(t, d.Members("no-such-room"))
}
