package compute

import "fmt"

// integrationBridge is the OVS bridge ovn-controller manages on every
// compute node. Tenant VM ports attach here and are stitched into their
// logical switch via the iface-id external id.
const integrationBridge = "br-int"

// attachTenantPort plugs the VM's tap into the integration bridge and
// tags it with the logical switch port name so ovn-controller binds it.
func (s *Server) attachTenantPort(tenant, name string) error {
	portName := tenant + "-" + name

	if err := s.runner.Run("ovs-vsctl", "add-port", integrationBridge, portName,
		fmt.Sprintf("external_ids:iface-id=%s", portName)); err != nil {
		return fmt.Errorf("ovs-vsctl add-port: %w", err)
	}
	if err := s.runner.Run("ovs-vsctl", "set", "Interface", portName,
		fmt.Sprintf("external_ids:iface-id=%s", portName)); err != nil {
		return fmt.Errorf("ovs-vsctl set interface: %w", err)
	}
	return nil
}

// attachProviderPort plugs the VM's tap straight into a provider VLAN
// bridge, bypassing the overlay.
func (s *Server) attachProviderPort(tenant, name, vlan string) error {
	portName := tenant + "-" + name
	bridge := "br-vlan" + vlan

	if err := s.runner.Run("ovs-vsctl", "add-port", bridge, portName); err != nil {
		return fmt.Errorf("ovs-vsctl add-port: %w", err)
	}
	return nil
}

func (s *Server) detachPort(tenant, name string) error {
	portName := tenant + "-" + name
	if err := s.runner.Run("ovs-vsctl", "del-port", integrationBridge, portName); err != nil {
		return fmt.Errorf("ovs-vsctl del-port: %w", err)
	}
	return nil
}
