package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomKey_OrderIndependent(t *testing.T) {
	assert.Equal(t, "3_7", RoomKey(3, 7))
	assert.Equal(t, "3_7", RoomKey(7, 3))
	assert.Equal(t, "5_5", RoomKey(5, 5))
}
