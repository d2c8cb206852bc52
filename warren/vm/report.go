package vm

// StatsReport is the inventory payload a node agent pushes to
// POST /hypervisor/stats. Memory is the host total in GiB.
type StatsReport struct {
	Hostname string        `json:"hostname"`
	Memory   int32         `json:"memory"`
	CPU      int32         `json:"cpu"`
	Arch     string        `json:"arch"`
	VMs      []GuestReport `json:"vms"`
}

// GuestReport is one guest in a stats report. Memory is in GiB; IP
// addresses carry their prefix ("10.0.0.5/24").
type GuestReport struct {
	Name        string   `json:"name"`
	Memory      int32    `json:"memory"`
	CPU         int32    `json:"cpu"`
	State       string   `json:"state"`
	IPAddresses []string `json:"ip_addresses"`
}
