package controlplane

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/warrenhq/warren/warren/db"
	"github.com/warrenhq/warren/warren/events"
	"github.com/warrenhq/warren/warren/vm"
)

// hypervisorStats is the agent inventory sink. First report from a host
// registers it; subsequent reports refresh its utilisation and reconcile
// per-VM state and addresses against the database.
func (s *Server) hypervisorStats(c *fiber.Ctx) error {
	var report vm.StatsReport
	if err := c.BodyParser(&report); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("Invalid request body: %v", err))
	}

	if !vm.SupportedArch(report.Arch) {
		return c.Status(fiber.StatusBadRequest).SendString(
			"Invalid architecture specified. Only " + strings.Join(vm.SupportedArches, " and ") + " are supported.")
	}

	// Each guest is charged one unit of overhead on top of its allocation;
	// an idle host reserves one of each for itself.
	var usedRAM, usedCPU int32
	if len(report.VMs) == 0 {
		usedRAM, usedCPU = 1, 1
	} else {
		for _, guest := range report.VMs {
			usedRAM += 1 + guest.Memory
			usedCPU += 1 + guest.CPU
		}
	}

	hypervisorID, err := s.repo.HypervisorIDByHostname(c.Context(), report.Hostname)
	if errors.Is(err, db.ErrNotFound) {
		if err := s.repo.RegisterHypervisor(c.Context(), report.Hostname, report.Memory, report.CPU,
			usedRAM, usedCPU, report.Arch, int32(len(report.VMs))); err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to register hypervisor: %v", err))
		}
		s.events.Publish(events.SubjectHypervisorRegistered, events.HypervisorEvent{
			Hostname: report.Hostname,
			Arch:     report.Arch,
		})
		return c.SendString(fmt.Sprintf("Hypervisor '%s' registered successfully.", report.Hostname))
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to get hypervisor: %v", err))
	}

	if err := s.repo.UpdateHypervisor(c.Context(), hypervisorID, usedRAM, usedCPU, int32(len(report.VMs))); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to update hypervisor: %v", err))
	}

	var vmErrors []string
	for _, guest := range report.VMs {
		// Guest domains are named "{tenant}-{vm}"; anything else on the
		// host is not ours to reconcile.
		tenant, name, err := vm.InstanceName(guest.Name).Parse()
		if err != nil {
			continue
		}

		tenantUUID, err := s.repo.TenantIDByName(c.Context(), tenant)
		if errors.Is(err, db.ErrNotFound) {
			vmErrors = append(vmErrors, fmt.Sprintf("Tenant '%s' not found.", tenant))
			continue
		}
		if err != nil {
			vmErrors = append(vmErrors, fmt.Sprintf("Failed to fetch tenant '%s': %v", tenant, err))
			continue
		}

		record, err := s.repo.VirtualMachineByName(c.Context(), name, tenantUUID)
		if errors.Is(err, db.ErrNotFound) {
			continue
		}
		if err != nil {
			vmErrors = append(vmErrors, fmt.Sprintf("Failed to fetch VM state '%s': %v", name, err))
			continue
		}

		if record.State != guest.State {
			if err := s.repo.UpdateVMState(c.Context(), name, tenantUUID, strings.ToLower(guest.State)); err != nil {
				vmErrors = append(vmErrors, fmt.Sprintf("Failed to update VM '%s': %v", name, err))
			}
		}

		reported, err := parsePrefixes(guest.IPAddresses)
		if err != nil {
			vmErrors = append(vmErrors, fmt.Sprintf("Failed to update VM '%s' IP addresses: %v", name, err))
			continue
		}
		if !samePrefixSet(record.IPAddresses, reported) {
			if err := s.repo.UpdateVMIPAddresses(c.Context(), name, tenantUUID, reported); err != nil {
				vmErrors = append(vmErrors, fmt.Sprintf("Failed to update VM '%s' IP addresses: %v", name, err))
			}
		}
	}

	if len(vmErrors) == 0 {
		return c.SendString("Hypervisor and all VMs updated successfully.")
	}
	return c.Status(fiber.StatusInternalServerError).SendString(
		"Hypervisor updated but had VM errors: " + strings.Join(vmErrors, "; "))
}

func parsePrefixes(addrs []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(addrs))
	for _, a := range addrs {
		p, err := netip.ParsePrefix(a)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, p)
	}
	return prefixes, nil
}

// samePrefixSet compares address lists ignoring order, so agents
// re-reporting the same leases in a different order cause no writes.
func samePrefixSet(a, b []netip.Prefix) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[netip.Prefix]int, len(a))
	for _, p := range a {
		set[p]++
	}
	for _, p := range b {
		set[p]--
		if set[p] < 0 {
			return false
		}
	}
	return true
}
