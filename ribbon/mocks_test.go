package ribbon

import (
	"github.com/google/uuid"
)

// Mock UUID generation for testing. Returns a function to undo the mocking.
func MockUUIDs(uuids ...uuid.UUID) func() {
	var i int
	oldUUIDv4 := uuidv4
	undo := func() { uuidv4 = oldUUIDv4 }
	uuidv4 = func() uuid.UUID {
		uuid := uuids[i]
		i++
		return uuid
	}
	return undo
}
