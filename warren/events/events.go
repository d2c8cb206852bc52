// Package events publishes warren lifecycle events over NATS. Publication
// is fire-and-forget: a nil Publisher (bus disabled) and a publish failure
// both leave the calling operation untouched.
package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects emitted by the control plane.
const (
	SubjectVMCreated            = "warren.vm.created"
	SubjectVMDeleted            = "warren.vm.deleted"
	SubjectHypervisorRegistered = "warren.hypervisor.registered"
)

// VMEvent is the payload for vm.created and vm.deleted.
type VMEvent struct {
	Name       string `json:"name"`
	Tenant     string `json:"tenant"`
	Hypervisor string `json:"hypervisor,omitempty"`
}

// HypervisorEvent is the payload for hypervisor.registered.
type HypervisorEvent struct {
	Hostname string `json:"hostname"`
	Arch     string `json:"arch"`
}

// Publisher wraps a NATS connection for lifecycle event publication.
type Publisher struct {
	nc *nats.Conn
}

// Connect dials the NATS server and returns a Publisher over it.
func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc}, nil
}

// Close drains the underlying connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Close()
}

// Publish marshals payload and emits it on subject. Failures are logged
// and swallowed; lifecycle events never fail the operation that raised
// them.
func (p *Publisher) Publish(subject string, payload any) {
	if p == nil || p.nc == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal event", "subject", subject, "error", err)
		return
	}

	if err := p.nc.Publish(subject, data); err != nil {
		slog.Error("Failed to publish event", "subject", subject, "error", err)
	}
}
