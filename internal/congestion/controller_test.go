package congestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwik-transport/qcore/internal/protocol"
	"github.com/kwik-transport/qcore/internal/synctest"
)

func TestControllerCanSendWithinWindow(t *testing.T) {
	c := NewController(1200, 2400, 1200, 0.5)
	assert.True(t, c.CanSend(2400))
	assert.False(t, c.CanSend(2401))
}

func TestControllerRegisterInFlightConsumesWindow(t *testing.T) {
	c := NewController(1200, 2400, 1200, 0.5)
	c.RegisterInFlight(Packet{SendTime: time.Now(), Size: 1200, InFlight: true})
	assert.Equal(t, protocol.ByteCount(1200), c.BytesInFlight())
	assert.True(t, c.CanSend(1200))
	assert.False(t, c.CanSend(1201))
}

func TestControllerRegisterInFlightIgnoresNonInFlight(t *testing.T) {
	c := NewController(1200, 2400, 1200, 0.5)
	c.RegisterInFlight(Packet{SendTime: time.Now(), Size: 1200, InFlight: false})
	assert.Equal(t, protocol.ByteCount(0), c.BytesInFlight())
}

func TestControllerRegisterAckedRetiresThenGrowsInSlowStart(t *testing.T) {
	c := NewController(1200, 2400, 1200, 0.5)
	sendTime := time.Now()
	c.RegisterInFlight(Packet{SendTime: sendTime, Size: 1200, InFlight: true})

	c.RegisterAcked([]Packet{{SendTime: sendTime, Size: 1200, InFlight: true}})

	assert.Equal(t, protocol.ByteCount(0), c.BytesInFlight())
	assert.Equal(t, protocol.ByteCount(3600), c.CongestionWindow())
	assert.True(t, c.InSlowStart())
}

func TestControllerOnLostCutsBackWindow(t *testing.T) {
	c := NewController(1200, 2400, 1200, 0.5)
	sendTime := time.Now()
	c.RegisterInFlight(Packet{SendTime: sendTime, Size: 1200, InFlight: true})

	c.OnLost([]Packet{{SendTime: sendTime, Size: 1200, InFlight: true}})

	assert.Equal(t, protocol.ByteCount(0), c.BytesInFlight())
	assert.Equal(t, protocol.ByteCount(1200), c.CongestionWindow())
	assert.False(t, c.InSlowStart())
}

func TestControllerOnLostNeverCutsBelowMinimumWindow(t *testing.T) {
	c := NewController(1200, 1200, 1200, 0.5)
	sendTime := time.Now()
	c.OnLost([]Packet{{SendTime: sendTime, Size: 1200, InFlight: true}})
	assert.Equal(t, protocol.ByteCount(1200), c.CongestionWindow())
}

// TestControllerWaitForUpdateNoMissedWakeup exercises the
// Generation/WaitForUpdate contract: a goroutine blocked in
// WaitForUpdate on a captured generation snapshot must wake once a
// RegisterAcked call from another goroutine advances the generation.
func TestControllerWaitForUpdateNoMissedWakeup(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := NewController(1200, 1200, 1200, 0.5)
		sendTime := time.Now()
		c.RegisterInFlight(Packet{SendTime: sendTime, Size: 1200, InFlight: true})

		seen := c.Generation()

		done := make(chan struct{})
		go func() {
			c.WaitForUpdate(seen)
			close(done)
		}()
		synctest.Wait()

		c.RegisterAcked([]Packet{{SendTime: sendTime, Size: 1200, InFlight: true}})
		synctest.Wait()

		select {
		case <-done:
		default:
			t.Fatal("WaitForUpdate did not wake after RegisterAcked advanced the generation")
		}
	})
}

func TestControllerWaitForUpdateReturnsImmediatelyOnStaleGeneration(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := NewController(1200, 1200, 1200, 0.5)
		sendTime := time.Now()
		c.RegisterInFlight(Packet{SendTime: sendTime, Size: 1200, InFlight: true})
		seen := c.Generation()

		c.RegisterAcked([]Packet{{SendTime: sendTime, Size: 1200, InFlight: true}})

		done := make(chan struct{})
		go func() {
			c.WaitForUpdate(seen)
			close(done)
		}()
		synctest.Wait()

		select {
		case <-done:
		default:
			t.Fatal("WaitForUpdate blocked despite an already-stale generation snapshot")
		}
	})
}

func TestControllerBroadcastWakesWithoutStateChange(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := NewController(1200, 1200, 1200, 0.5)
		seen := c.Generation()

		done := make(chan struct{})
		go func() {
			c.WaitForUpdate(seen)
			close(done)
		}()
		synctest.Wait()

		c.Broadcast()
		synctest.Wait()

		select {
		case <-done:
		default:
			t.Fatal("WaitForUpdate did not wake after Broadcast")
		}
		require.Greater(t, c.Generation(), seen)
	})
}
