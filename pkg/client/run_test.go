package client

import (
	"context"
	"testing"
	"time"

	. "github.com/Krajiyah/ble-health/internal"
	"github.com/Krajiyah/ble-health/pkg/models"
	"github.com/Krajiyah/ble-health/pkg/sink"
	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/Krajiyah/ble-health/pkg/util"
	"gotest.tools/assert"
)

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunDeliversTransportEvents(t *testing.T) {
	central := NewFakeCentral()
	clock := NewFakeClock(testNow)
	events := sink.NewChannel(16)
	c := NewController(central, events, Options{Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	c.ConnectToHealthDevice()
	eventually(t, func() bool { return clock.Pending() == 1 })
	clock.Advance(util.ScanDelay)
	eventually(t, func() bool { return len(central.CallsOf("Scan")) == 1 })

	central.Emit(transport.Event{Type: transport.Discovered, Address: testAddr, Name: testName})
	eventually(t, func() bool { return len(central.CallsOf("Connect")) == 1 })

	p := healthPeripheral(testAddr, testName)
	central.Emit(transport.Event{Type: transport.Connected, Address: testAddr, Peripheral: p})
	select {
	case e := <-events.Events():
		assert.Equal(t, e.Kind, models.ConnectionStatusEvent)
		assert.Equal(t, e.Payload.(models.ConnectionStatus).Connected, true)
	case <-time.After(2 * time.Second):
		t.Fatal("no connection status event")
	}

	cancel()
	assert.Equal(t, <-done, context.Canceled)
	assert.Equal(t, len(central.CallsOf("CancelConnection")), 1)
}
