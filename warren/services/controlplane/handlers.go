package controlplane

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/warrenhq/warren/warren/db"
	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"
)

// tenantRequest doubles as the create, delete and list-selector body:
// endpoints accept a tenant name, a tenant UUID, or both.
type tenantRequest struct {
	Name string     `json:"name"`
	ID   *uuid.UUID `json:"id"`
}

type vpcRequest struct {
	ID     *uuid.UUID `json:"id"`
	Name   string     `json:"name"`
	CIDR   string     `json:"cidr"`
	NAT    *bool      `json:"nat"`
	Tenant *uuid.UUID `json:"tenant"`
}

type vpcDeleteRequest struct {
	ID     uuid.UUID `json:"id"`
	Tenant uuid.UUID `json:"tenant"`
}

type sshKeyRequest struct {
	Name      string     `json:"name"`
	SSHPubKey string     `json:"ssh_pub_key"`
	Tenant    *uuid.UUID `json:"tenant"`
}

type providerNetworkRequest struct {
	Name   string `json:"name"`
	VLAN   int32  `json:"vlan"`
	Subnet string `json:"subnet"`
}

type providerNetworkDeleteRequest struct {
	Name string `json:"name"`
}

func (s *Server) createTenant(c *fiber.Ctx) error {
	var req tenantRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Tenant create request must include a name.")
	}

	_, err := s.repo.TenantIDByName(c.Context(), req.Name)
	if err == nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("Tenant '%s' already exists.", req.Name))
	}
	if !errors.Is(err, db.ErrNotFound) {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}

	if err := s.repo.CreateTenant(c.Context(), req.Name); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to create tenant: %v", err))
	}
	return c.SendString(fmt.Sprintf("Tenant '%s' created successfully.", req.Name))
}

func (s *Server) deleteTenant(c *fiber.Ctx) error {
	var req tenantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Tenant delete request must include either 'id' (UUID) or 'name'.")
	}

	var tenantID uuid.UUID
	var identifier string

	switch {
	case req.ID != nil:
		if _, err := s.repo.TenantNameByID(c.Context(), *req.ID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).SendString(fmt.Sprintf("Tenant with UUID '%s' not found.", *req.ID))
			}
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error checking tenant ID: %v", err))
		}
		tenantID = *req.ID
		identifier = req.ID.String()

	case req.Name != "":
		id, err := s.repo.TenantIDByName(c.Context(), req.Name)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).SendString(fmt.Sprintf("Tenant with name '%s' not found.", req.Name))
			}
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error checking tenant name: %v", err))
		}
		tenantID = id
		identifier = req.Name

	default:
		return c.Status(fiber.StatusBadRequest).SendString("Tenant delete request must include either 'id' (UUID) or 'name'.")
	}

	_, err := s.repo.VirtualMachineByTenant(c.Context(), tenantID)
	if err == nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("Tenant '%s' has associated VMs. Please delete associated VMs first.", identifier))
	}
	if !errors.Is(err, db.ErrNotFound) {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error checking associated VMs: %v", err))
	}

	keys, err := s.repo.ListSSHPubKeys(c.Context(), tenantID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error checking associated SSH keys: %v", err))
	}
	if len(keys) > 0 {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf(
			"Tenant '%s' has associated SSH keys (%d found). Please delete associated SSH keys first.", identifier, len(keys)))
	}

	if err := s.repo.DeleteTenant(c.Context(), tenantID); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to delete tenant '%s': %v", identifier, err))
	}
	return c.SendString(fmt.Sprintf("Tenant '%s' deleted successfully.", identifier))
}

func (s *Server) listTenants(c *fiber.Ctx) error {
	tenants, err := s.repo.ListTenants(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Error fetching tenants")
	}
	return c.JSON(tenants)
}

func (s *Server) createVPC(c *fiber.Ctx) error {
	var req vpcRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" || req.CIDR == "" || req.NAT == nil || req.Tenant == nil {
		return c.Status(fiber.StatusBadRequest).SendString("VPC create request must include a name and CIDR.")
	}

	_, err := s.repo.VPCIDByName(c.Context(), req.Name, *req.Tenant)
	if err == nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("VPC '%s' already exists.", req.Name))
	}
	if !errors.Is(err, db.ErrNotFound) {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}

	// Overlay first, then the database row. A failed insert can leave the
	// switch behind; the error message makes the leak visible.
	switchName := fmt.Sprintf("%s-%s", req.Tenant, req.Name)
	if err := s.ovn.CreateL2Switch(c.Context(), switchName, req.CIDR); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to create L2 switch: %v", err))
	}

	if err := s.ovn.CreateDHCPv4Options(c.Context(), req.CIDR); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to create DHCPv4 options: %v", err))
	}

	if err := s.repo.CreateVPC(c.Context(), req.Name, req.CIDR, *req.NAT, *req.Tenant); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to create VPC: %v", err))
	}
	return c.SendString(fmt.Sprintf("VPC '%s' created successfully.", req.Name))
}

func (s *Server) deleteVPC(c *fiber.Ctx) error {
	var req vpcDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("VPC delete request must use a valid VPC UUID.")
	}

	ports, err := s.repo.ListPorts(c.Context(), req.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}
	if len(ports) > 0 {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf(
			"VPC '%s' has ports associated with it. Please delete associated ports first.", req.ID))
	}

	name, err := s.repo.VPCNameByID(c.Context(), req.ID, req.Tenant)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("VPC '%s' does not exist.", req.ID))
		}
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}

	switchName := fmt.Sprintf("%s-%s", req.Tenant, name)
	if err := s.ovn.DeleteL2Switch(c.Context(), switchName); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to delete L2 switch: %v", err))
	}

	vpc, err := s.repo.VPCByName(c.Context(), name)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusBadRequest).SendString("VPC not found")
		}
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}

	if err := s.ovn.DeleteDHCPv4Options(c.Context(), vpc.CIDR); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to delete DHCPv4 options: %v", err))
	}

	if err := s.repo.DeleteVPC(c.Context(), req.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to delete VPC: %v", err))
	}
	return c.SendString(fmt.Sprintf("VPC '%s' deleted successfully.", req.ID))
}

// listVPCs answers in YAML when selected by tenant name and JSON when
// selected by tenant id. A historical quirk, kept deliberately.
func (s *Server) listVPCs(c *fiber.Ctx) error {
	var req tenantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("VPC list request must include a tenant name or UUID.")
	}

	switch {
	case req.Name != "":
		vpcs, err := s.repo.ListVPCsByTenantName(c.Context(), req.Name)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
		}
		out, err := yaml.Marshal(vpcs)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error serializing VPCs")
		}
		return c.SendString(string(out))

	case req.ID != nil:
		vpcs, err := s.repo.ListVPCsByTenantID(c.Context(), *req.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
		}
		return c.JSON(vpcs)

	default:
		return c.Status(fiber.StatusBadRequest).SendString("VPC list request must include a tenant name or UUID.")
	}
}

func (s *Server) listPorts(c *fiber.Ctx) error {
	var req vpcRequest
	if err := c.BodyParser(&req); err != nil || req.ID == nil {
		return c.Status(fiber.StatusBadRequest).SendString("VPC delete request must use a valid VPC UUID.")
	}

	ports, err := s.repo.ListPorts(c.Context(), *req.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}
	return c.JSON(ports)
}

func (s *Server) createSSHPubKey(c *fiber.Ctx) error {
	var req sshKeyRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" || req.SSHPubKey == "" || req.Tenant == nil {
		return c.Status(fiber.StatusBadRequest).SendString("SSH public key create request must include a name and SSH public key.")
	}

	publicKey, _, _, _, err := ssh.ParseAuthorizedKey([]byte(req.SSHPubKey))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("Invalid SSH public key: %v", err))
	}
	fingerprint := ssh.FingerprintSHA256(publicKey)

	if err := s.repo.CreateSSHPubKey(c.Context(), req.Name, req.SSHPubKey, fingerprint, *req.Tenant); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to create SSH public key: %v", err))
	}
	return c.SendString(fmt.Sprintf("SSH public key '%s' created successfully.", req.Name))
}

func (s *Server) deleteSSHPubKey(c *fiber.Ctx) error {
	var req sshKeyRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).SendString("SSH public key delete request must use a valid SSH public key name.")
	}

	if err := s.repo.DeleteSSHPubKey(c.Context(), req.Name); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to delete SSH public key: %v", err))
	}
	return c.SendString(fmt.Sprintf("SSH public key with name '%s' deleted successfully.", req.Name))
}

func (s *Server) listSSHPubKeys(c *fiber.Ctx) error {
	var req tenantRequest
	if err := c.BodyParser(&req); err != nil || req.ID == nil {
		return c.Status(fiber.StatusBadRequest).SendString("SSH public key list request must include tenant's UUID.")
	}

	keys, err := s.repo.ListSSHPubKeys(c.Context(), *req.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Database error: %v", err))
	}
	return c.JSON(keys)
}

func (s *Server) createProviderNetwork(c *fiber.Ctx) error {
	var req providerNetworkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Provider network must include a non-empty name and a valid VLAN (1-4094).")
	}

	if req.Name == "" || req.VLAN < 1 || req.VLAN > 4094 || req.Subnet == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Provider network must include a non-empty name and a valid VLAN (1-4094).")
	}

	if err := s.repo.CreateProviderNetwork(c.Context(), req.Name, req.VLAN, req.Subnet); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to create provider network: %v", err))
	}
	return c.SendString(fmt.Sprintf("Provider network '%s' created successfully.", req.Name))
}

func (s *Server) deleteProviderNetwork(c *fiber.Ctx) error {
	var req providerNetworkDeleteRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Provider network delete request must include a non-empty name.")
	}

	if err := s.repo.DeleteProviderNetwork(c.Context(), req.Name); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to delete provider network: %v", err))
	}
	return c.SendString(fmt.Sprintf("Provider network '%s' deleted successfully.", req.Name))
}

func (s *Server) listProviderNetworks(c *fiber.Ctx) error {
	networks, err := s.repo.ListProviderNetworks(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Error fetching networks")
	}
	return c.JSON(networks)
}

func (s *Server) listHypervisors(c *fiber.Ctx) error {
	hypervisors, err := s.repo.ListHypervisors(c.Context())
	if err != nil {
		slog.Error("Failed to list hypervisors", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error fetching hypervisors")
	}
	return c.JSON(hypervisors)
}
