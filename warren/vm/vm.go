// Package vm holds the typed VM domain shared between the control plane
// and compute nodes: the compute API wire types, the hypervisor-side
// instance naming convention, and reported lifecycle states.
package vm

import (
	"fmt"
	"slices"
	"strings"
)

// CreateRequest is the body of POST /virtualmachine/create on a compute
// node. Memory is in MiB; Disk is the root volume size in GB. Network
// carries the provider VLAN id and is only set in l2-bridged mode.
type CreateRequest struct {
	Name       string `json:"name"`
	Memory     uint64 `json:"memory"`
	CPU        uint32 `json:"cpu"`
	OS         string `json:"os"`
	SSHPubKey  string `json:"ssh_pub_key"`
	Disk       uint32 `json:"disk"`
	Tenant     string `json:"tenant"`
	MacAddr    string `json:"mac_addr"`
	Networking string `json:"networking"`
	Network    string `json:"network,omitempty"`
}

// DeleteRequest is the body of POST /virtualmachine/delete on a compute
// node.
type DeleteRequest struct {
	Name   string `json:"name"`
	Tenant string `json:"tenant"`
}

// Networking modes for a VM interface.
const (
	NetworkingL2Tenant  = "l2-tenant"
	NetworkingL2Bridged = "l2-bridged"
)

// SupportedNetworking reports whether mode is a known networking mode.
func SupportedNetworking(mode string) bool {
	return mode == NetworkingL2Tenant || mode == NetworkingL2Bridged
}

// SupportedOSes lists the guest images compute nodes can provision.
var SupportedOSes = []string{"rhel9", "fedora41"}

// SupportedOS reports whether os names a provisionable guest image.
func SupportedOS(os string) bool {
	return slices.Contains(SupportedOSes, os)
}

// SupportedArches lists the hypervisor architectures the scheduler can
// place on.
var SupportedArches = []string{"x86_64", "aarch64"}

// SupportedArch reports whether arch is a schedulable architecture.
func SupportedArch(arch string) bool {
	return slices.Contains(SupportedArches, arch)
}

// InstanceName is the "{tenant}-{name}" domain name a VM carries on its
// hypervisor. Reported names split at the first hyphen, so the tenant
// segment must not contain one.
type InstanceName string

// MakeInstanceName composes the domain name for a tenant's VM.
func MakeInstanceName(tenant, name string) InstanceName {
	return InstanceName(tenant + "-" + name)
}

func (n InstanceName) String() string {
	return string(n)
}

// Parse splits the domain name into its tenant and VM name segments.
// Names without a hyphen are not instance domains.
func (n InstanceName) Parse() (tenant, name string, err error) {
	i := strings.Index(string(n), "-")
	if i < 0 {
		return "", "", fmt.Errorf("instance name %q has no tenant segment", string(n))
	}
	return string(n)[:i], string(n)[i+1:], nil
}
