package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestNATSServer(t *testing.T) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := server.NewServer(opts)
	require.NoError(t, err)

	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second), "NATS server failed to start")

	t.Cleanup(func() { ns.Shutdown() })
	return ns
}

func TestPublishVMEvent(t *testing.T) {
	ns := startTestNATSServer(t)

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	received := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(SubjectVMCreated, received)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	pub, err := Connect(ns.ClientURL())
	require.NoError(t, err)
	defer pub.Close()

	pub.Publish(SubjectVMCreated, VMEvent{Name: "web", Tenant: "acme", Hypervisor: "h1"})

	select {
	case msg := <-received:
		var ev VMEvent
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, "web", ev.Name)
		assert.Equal(t, "acme", ev.Tenant)
		assert.Equal(t, "h1", ev.Hypervisor)
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}
}

func TestNilPublisherIsSafe(t *testing.T) {
	var pub *Publisher
	// Must not panic with the bus disabled.
	pub.Publish(SubjectVMDeleted, VMEvent{Name: "web", Tenant: "acme"})
	pub.Close()
}
