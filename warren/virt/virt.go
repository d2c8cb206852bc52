// Package virt talks to the local libvirt daemon over its RPC socket.
// It exposes the narrow surface compute nodes need: defining and
// removing domains, and walking the guest inventory.
package virt

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket/dialers"
)

// ErrNotFound is returned by MockConn when a domain does not exist. The
// live connection surfaces libvirt's own lookup error instead.
var ErrNotFound = errors.New("domain not found")

// GuestAddr is one address on a guest interface, as the guest agent
// reports it.
type GuestAddr struct {
	Addr   string
	Prefix uint32
}

// GuestInterface is one guest NIC with its addresses.
type GuestInterface struct {
	Name  string
	Addrs []GuestAddr
}

// Guest describes one domain in the host inventory.
type Guest struct {
	Name      string
	MemoryKiB uint64
	CPUs      uint16
	StateCode uint8
	// Interfaces is nil when the guest agent is unreachable.
	Interfaces []GuestInterface
}

// Conn is the libvirt surface compute nodes depend on.
type Conn interface {
	// DefineAndStart defines the domain from xml, boots it and marks it
	// for autostart.
	DefineAndStart(xml string) error
	// Lookup fails when the named domain is not defined.
	Lookup(name string) error
	// Remove destroys and undefines the named domain, dropping its NVRAM.
	Remove(name string) error
	// Guests lists running and shut-off domains with their guest-agent
	// interface addresses.
	Guests() ([]Guest, error)
}

// LiveConn dials the libvirt socket per operation. Operations are rare
// enough that holding a connection across agent intervals is not worth
// the stale-socket handling.
type LiveConn struct{}

func NewLiveConn() *LiveConn {
	return &LiveConn{}
}

func (c *LiveConn) dial() (*libvirt.Libvirt, error) {
	l := libvirt.NewWithDialer(dialers.NewLocal())
	if err := l.Connect(); err != nil {
		return nil, fmt.Errorf("connect to libvirt: %w", err)
	}
	return l, nil
}

func (c *LiveConn) DefineAndStart(xml string) error {
	l, err := c.dial()
	if err != nil {
		return err
	}
	defer l.Disconnect()

	dom, err := l.DomainDefineXML(xml)
	if err != nil {
		return fmt.Errorf("define domain: %w", err)
	}
	if err := l.DomainCreate(dom); err != nil {
		return fmt.Errorf("start domain: %w", err)
	}
	if err := l.DomainSetAutostart(dom, 1); err != nil {
		return fmt.Errorf("set domain autostart: %w", err)
	}
	return nil
}

func (c *LiveConn) Lookup(name string) error {
	l, err := c.dial()
	if err != nil {
		return err
	}
	defer l.Disconnect()

	if _, err := l.DomainLookupByName(name); err != nil {
		return fmt.Errorf("domain %q lookup: %w", name, err)
	}
	return nil
}

func (c *LiveConn) Remove(name string) error {
	l, err := c.dial()
	if err != nil {
		return err
	}
	defer l.Disconnect()

	dom, err := l.DomainLookupByName(name)
	if err != nil {
		return fmt.Errorf("domain %q lookup: %w", name, err)
	}
	if err := l.DomainDestroy(dom); err != nil {
		return fmt.Errorf("destroy domain: %w", err)
	}
	if err := l.DomainUndefineFlags(dom, libvirt.DomainUndefineNvram); err != nil {
		return fmt.Errorf("undefine domain: %w", err)
	}
	return nil
}

func (c *LiveConn) Guests() ([]Guest, error) {
	l, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer l.Disconnect()

	domains, _, err := l.ConnectListAllDomains(1,
		libvirt.ConnectListDomainsRunning|libvirt.ConnectListDomainsShutoff)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}

	guests := make([]Guest, 0, len(domains))
	for _, dom := range domains {
		state, _, memory, cpus, _, err := l.DomainGetInfo(dom)
		if err != nil {
			return nil, fmt.Errorf("domain %q info: %w", dom.Name, err)
		}

		var ifaces []GuestInterface
		reported, err := l.DomainInterfaceAddresses(dom,
			uint32(libvirt.DomainInterfaceAddressesSrcAgent), 0)
		if err != nil {
			// Guests without the agent (or still booting) stay in the
			// inventory with no addresses.
			slog.Warn("Could not get interfaces via guest agent", "domain", dom.Name, "error", err)
		} else {
			for _, iface := range reported {
				gi := GuestInterface{Name: iface.Name}
				for _, addr := range iface.Addrs {
					gi.Addrs = append(gi.Addrs, GuestAddr{Addr: addr.Addr, Prefix: addr.Prefix})
				}
				ifaces = append(ifaces, gi)
			}
		}

		guests = append(guests, Guest{
			Name:       dom.Name,
			MemoryKiB:  memory,
			CPUs:       cpus,
			StateCode:  state,
			Interfaces: ifaces,
		})
	}
	return guests, nil
}
