package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescriptorBitPackingRoundTrip(t *testing.T) {
	var state uint64
	state = descSetWakeRequired(state, 7)
	assert.True(t, descExtractWakeRequired(state))
	assert.Equal(t, uint32(7), descExtractWakeThreadID(state))
	assert.False(t, descExtractDone(state))

	state = descSetDone(state)
	assert.True(t, descExtractDone(state))
	assert.True(t, descExtractWakeRequired(state))
	assert.Equal(t, uint32(7), descExtractWakeThreadID(state))
}

func TestDescriptorMarkDoneWakesRegisteredWaiter(t *testing.T) {
	d := &descriptor{}
	require := assert.New(t)
	require.True(d.registerWaiter(3))

	var woke uint32 = 99
	d.markDone(func(threadID uint32) { woke = threadID })
	require.Equal(uint32(3), woke)
	require.True(d.isDone())
}

func TestDescriptorRegisterWaiterFailsIfAlreadyDone(t *testing.T) {
	d := &descriptor{}
	d.markDone(func(uint32) {})
	assert.False(t, d.registerWaiter(5))
}
