package controlplane

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/warrenhq/warren/warren/db"
	"github.com/warrenhq/warren/warren/events"
	"github.com/warrenhq/warren/warren/ovn"
	"github.com/warrenhq/warren/warren/vm"
)

// vmCreateAPIRequest is the north-bound VM create body. RAM is in GiB;
// tenant, vpc and ssh_pub_key are names, resolved to UUIDs here.
type vmCreateAPIRequest struct {
	Name       string  `json:"name"`
	RAM        int32   `json:"ram"`
	CPU        int32   `json:"cpu"`
	OS         string  `json:"os"`
	DiskSize   int32   `json:"disk_size"`
	VPC        string  `json:"vpc"`
	SSHPubKey  string  `json:"ssh_pub_key"`
	Tenant     string  `json:"tenant"`
	Arch       string  `json:"arch"`
	Networking string  `json:"networking"`
	Network    *string `json:"network"`
}

type vmDeleteAPIRequest struct {
	Name   string `json:"name"`
	Tenant string `json:"tenant"`
}

// createVirtualMachine places a VM: validate, pick the least-loaded
// hypervisor with headroom, wire the overlay port, dispatch the create to
// the chosen compute node, then record the VM. Overlay and compute-side
// work happen before the database row, so a late failure leaves the row
// absent rather than dangling.
func (s *Server) createVirtualMachine(c *fiber.Ctx) error {
	var req vmCreateAPIRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("Invalid request body: %v", err))
	}

	tenantUUID, err := s.repo.TenantIDByName(c.Context(), req.Tenant)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusBadRequest).SendString("Tenant not found")
		}
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}

	_, err = s.repo.VirtualMachineByName(c.Context(), req.Name, tenantUUID)
	if err == nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("VM '%s' already exists.", req.Name))
	}
	if !errors.Is(err, db.ErrNotFound) {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}

	if !vm.SupportedNetworking(req.Networking) {
		return c.Status(fiber.StatusBadRequest).SendString(
			"Invalid networking type, valid modes are: " + vm.NetworkingL2Tenant + ", " + vm.NetworkingL2Bridged)
	}

	var providerName, providerVLAN *string
	if req.Network != nil {
		if req.Networking != vm.NetworkingL2Bridged {
			return c.Status(fiber.StatusBadRequest).SendString("Network can only be specified for the l2-bridged networking mode")
		}
		provider, err := s.repo.ProviderNetworkByName(c.Context(), *req.Network)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("Network '%s' does not exist.", *req.Network))
			}
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
		}
		vlan := strconv.Itoa(int(provider.VLAN))
		providerName = &provider.Name
		providerVLAN = &vlan
	} else if req.Networking == vm.NetworkingL2Bridged {
		return c.Status(fiber.StatusBadRequest).SendString("Network must be specified for 'l2-bridged' networking.")
	}

	candidates, err := s.repo.LeastLoadedHypervisors(c.Context(), req.Arch)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}

	var targetHostname string
	var targetUUID uuid.UUID
	for _, h := range candidates {
		if h.TotalRAM-h.UsedRAM >= req.RAM && h.TotalCPU-h.UsedCPU >= req.CPU {
			targetHostname = h.Hostname
			targetUUID = h.ID
			break
		}
	}
	if targetHostname == "" && targetUUID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).SendString("No hypervisor available with enough resources to schedule VM.")
	}

	macAddr := ovn.GenerateMAC()

	computeReq := vm.CreateRequest{
		Name:       req.Name,
		Memory:     uint64(req.RAM) * 1024,
		CPU:        uint32(req.CPU),
		OS:         req.OS,
		Disk:       uint32(req.DiskSize),
		SSHPubKey:  req.SSHPubKey,
		Tenant:     req.Tenant,
		MacAddr:    macAddr,
		Networking: req.Networking,
	}

	switch req.Networking {
	case vm.NetworkingL2Tenant:
		lsName := fmt.Sprintf("%s-%s", tenantUUID, req.VPC)
		lspName := fmt.Sprintf("%s-%s", req.Tenant, req.Name)

		portUUID, err := s.ovn.AddLSPToLS(c.Context(), lspName, lsName)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to create logical port: %v", err))
		}
		if err := s.ovn.AddMACToLSP(c.Context(), portUUID, macAddr); err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to add MAC to LSP: %v", err))
		}

		cidr, err := s.repo.VPCCIDR(c.Context(), req.VPC, tenantUUID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return c.Status(fiber.StatusBadRequest).SendString("VPC CIDR not found")
			}
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
		}

		optsUUID, err := s.ovn.GetDHCPv4OptionsID(c.Context(), cidr)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
		}
		if err := s.ovn.AddDHCPOptionsToLSP(c.Context(), portUUID, optsUUID); err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to add DHCPv4 options to LSP: %v", err))
		}

	case vm.NetworkingL2Bridged:
		computeReq.Network = *providerVLAN
	}

	status, err := s.compute.CreateVM(c.Context(), targetHostname, computeReq)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(
			fmt.Sprintf("Failed to connect to hypervisor compute API '%s': %v", targetHostname, err))
	}
	if status != fiber.StatusOK {
		return c.Status(fiber.StatusInternalServerError).SendString(
			fmt.Sprintf("Failed to create VM on hypervisor '%s'.", targetHostname))
	}

	vpcUUID, err := s.repo.VPCIDByName(c.Context(), req.VPC, tenantUUID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusBadRequest).SendString("VPC not found")
		}
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}

	sshKeyUUID, err := s.repo.SSHKeyIDByName(c.Context(), req.SSHPubKey)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusBadRequest).SendString("SSH public key not found")
		}
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}

	newVM := db.NewVirtualMachine{
		Name:       req.Name,
		CPU:        req.CPU,
		RAM:        req.RAM,
		Tenant:     tenantUUID,
		VPC:        vpcUUID,
		SSHPubKey:  sshKeyUUID,
		DiskSize:   req.DiskSize,
		Hypervisor: targetUUID,
		OS:         req.OS,
		State:      "created",
		Networking: req.Networking,
		Network:    providerName,
	}
	if err := s.repo.CreateVirtualMachine(c.Context(), newVM); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to add VM to database: %v", err))
	}

	s.events.Publish(events.SubjectVMCreated, events.VMEvent{
		Name:       req.Name,
		Tenant:     req.Tenant,
		Hypervisor: targetHostname,
	})

	return c.SendString(fmt.Sprintf("VM '%s' created successfully.", req.Name))
}

func (s *Server) deleteVirtualMachine(c *fiber.Ctx) error {
	var req vmDeleteAPIRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("Invalid request body: %v", err))
	}

	tenantUUID, err := s.repo.TenantIDByName(c.Context(), req.Tenant)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusBadRequest).SendString("Tenant not found")
		}
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}

	record, err := s.repo.VirtualMachineByName(c.Context(), req.Name, tenantUUID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("VM '%s' not found.", req.Name))
		}
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}

	tenantName, err := s.repo.TenantNameByID(c.Context(), record.Tenant)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusBadRequest).SendString("Tenant not found")
		}
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}

	vpcName, err := s.repo.VPCNameByID(c.Context(), record.VPC, tenantUUID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusBadRequest).SendString("VPC not found")
		}
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}

	portName := fmt.Sprintf("%s-%s", tenantName, record.Name)
	lsName := fmt.Sprintf("%s-%s", tenantUUID, vpcName)
	if err := s.ovn.RemoveLSP(c.Context(), portName, lsName); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to delete LSP: %v", err))
	}

	hostname, err := s.repo.HypervisorHostnameByID(c.Context(), record.Hypervisor)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("Hypervisor '%s' not found.", record.Hypervisor))
		}
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}

	status, err := s.compute.DeleteVM(c.Context(), hostname, vm.DeleteRequest{Name: req.Name, Tenant: req.Tenant})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(
			fmt.Sprintf("Failed to connect to hypervisor compute API '%s': %v", record.Hypervisor, err))
	}
	if status != fiber.StatusOK {
		return c.Status(fiber.StatusInternalServerError).SendString(
			fmt.Sprintf("Failed to delete VM on hypervisor '%s'.", record.Hypervisor))
	}

	if err := s.repo.DeleteVirtualMachine(c.Context(), req.Name); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to delete VM from database: %v", err))
	}

	s.events.Publish(events.SubjectVMDeleted, events.VMEvent{
		Name:       req.Name,
		Tenant:     req.Tenant,
		Hypervisor: hostname,
	})

	return c.SendString(fmt.Sprintf("VM '%s' deleted successfully.", req.Name))
}

func (s *Server) listVirtualMachines(c *fiber.Ctx) error {
	var req tenantRequest
	if err := c.BodyParser(&req); err != nil || req.ID == nil {
		return c.Status(fiber.StatusBadRequest).SendString("VM list request must include a tenant ID.")
	}

	vms, err := s.repo.ListVirtualMachines(c.Context(), *req.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}
	return c.JSON(vms)
}
