// Package ovn manipulates the OVN northbound database over its native
// OVSDB JSON-RPC protocol: logical switches and switch ports for tenant
// L2 segments, plus the DHCPv4 option rows bound to them.
package ovn

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/ovn-kubernetes/libovsdb/ovsdb"
)

const (
	tableLogicalSwitch     = "Logical_Switch"
	tableLogicalSwitchPort = "Logical_Switch_Port"
	tableDHCPOptions       = "DHCP_Options"
)

// Client defines the overlay operations the control plane performs against
// the OVN Northbound Database. This abstraction allows for mock
// implementations in tests.
type Client interface {
	// Logical switch (one per VPC)
	CreateL2Switch(ctx context.Context, name, cidr string) error
	DeleteL2Switch(ctx context.Context, name string) error

	// Logical switch port (one per VM interface)
	AddLSPToLS(ctx context.Context, portName, switchName string) (string, error)
	AddMACToLSP(ctx context.Context, portUUID, mac string) error
	AddDHCPOptionsToLSP(ctx context.Context, portUUID, optsUUID string) error
	RemoveLSP(ctx context.Context, portName, switchName string) error

	// DHCPv4 options (one row per VPC CIDR)
	CreateDHCPv4Options(ctx context.Context, cidr string) error
	GetDHCPv4OptionsID(ctx context.Context, cidr string) (string, error)
	DeleteDHCPv4Options(ctx context.Context, cidr string) error
}

// LiveClient implements Client against a real northbound server through a
// per-operation OVSDB session.
type LiveClient struct {
	session *Session
}

// NewLiveClient creates a LiveClient targeting the northbound server at
// addr (host:port).
func NewLiveClient(addr string) *LiveClient {
	return &LiveClient{session: NewSession(addr)}
}

// transact executes a set of OVSDB operations as a single transaction,
// checking both the RPC error and individual operation results.
func (c *LiveClient) transact(ctx context.Context, id int, ops []ovsdb.Operation) ([]ovsdb.OperationResult, error) {
	results, err := c.session.Transact(ctx, id, ops...)
	if err != nil {
		return nil, err
	}
	if _, err := ovsdb.CheckOperationResults(results, ops); err != nil {
		// Log detailed per-operation errors for debugging
		for i, r := range results {
			if r.Error != "" {
				opTable := ""
				if i < len(ops) {
					opTable = fmt.Sprintf("%s on %s", ops[i].Op, ops[i].Table)
				}
				slog.Error("OVSDB operation failed", "index", i, "op", opTable, "error", r.Error, "details", r.Details)
			}
		}
		return nil, err
	}
	return results, nil
}

// selectUUID looks up the _uuid of a single row by column equality.
func (c *LiveClient) selectUUID(ctx context.Context, id int, table, column, value string) (string, error) {
	ops := []ovsdb.Operation{{
		Op:    ovsdb.OperationSelect,
		Table: table,
		Where: whereEq(column, value),
	}}
	results, err := c.transact(ctx, id, ops)
	if err != nil {
		return "", err
	}
	return SelectedUUID(results)
}

func (c *LiveClient) CreateL2Switch(ctx context.Context, name, cidr string) error {
	ops := []ovsdb.Operation{
		{
			Op:    ovsdb.OperationInsert,
			Table: tableLogicalSwitch,
			Row: ovsdb.Row{
				"name":         name,
				"other_config": ovsdb.OvsMap{GoMap: map[interface{}]interface{}{"subnet": cidr}},
			},
		},
		comment(fmt.Sprintf("Added by create_l2_switch %s at %s", name, time.Now().Format(time.RFC3339))),
	}
	if _, err := c.transact(ctx, 1, ops); err != nil {
		return fmt.Errorf("create logical switch transact: %w", err)
	}
	return nil
}

func (c *LiveClient) DeleteL2Switch(ctx context.Context, name string) error {
	ops := []ovsdb.Operation{
		{
			Op:    ovsdb.OperationDelete,
			Table: tableLogicalSwitch,
			Where: whereEq("name", name),
		},
		comment(fmt.Sprintf("Deleted by delete_l2_switch %s at %s", name, time.Now().Format(time.RFC3339))),
	}
	if _, err := c.transact(ctx, 1, ops); err != nil {
		return fmt.Errorf("delete logical switch transact: %w", err)
	}
	return nil
}

// AddLSPToLS creates a logical switch port and attaches it to the named
// switch in one transaction, returning the new port's UUID. The insert and
// the ports-set mutation are tied together through the "row1" named UUID.
func (c *LiveClient) AddLSPToLS(ctx context.Context, portName, switchName string) (string, error) {
	switchUUID, err := c.selectUUID(ctx, 3, tableLogicalSwitch, "name", switchName)
	if err != nil {
		return "", fmt.Errorf("logical switch %q lookup: %w", switchName, err)
	}

	ops := []ovsdb.Operation{
		{
			Op:       ovsdb.OperationInsert,
			Table:    tableLogicalSwitchPort,
			Row:      ovsdb.Row{"name": portName},
			UUIDName: "row1",
		},
		{
			Op:    ovsdb.OperationMutate,
			Table: tableLogicalSwitch,
			Where: whereUUID(switchUUID),
			Mutations: []ovsdb.Mutation{{
				Column:  "ports",
				Mutator: ovsdb.MutateOperationInsert,
				Value:   uuidSet(ovsdb.UUID{GoUUID: "row1"}),
			}},
		},
		comment(fmt.Sprintf("Added by add_lsp_to_ls for %s", portName)),
	}
	results, err := c.transact(ctx, 4, ops)
	if err != nil {
		return "", fmt.Errorf("add logical switch port transact: %w", err)
	}
	return InsertedUUID(results)
}

func (c *LiveClient) AddMACToLSP(ctx context.Context, portUUID, mac string) error {
	ops := []ovsdb.Operation{
		{
			Op:    ovsdb.OperationUpdate,
			Table: tableLogicalSwitchPort,
			Where: whereUUID(portUUID),
			Row:   ovsdb.Row{"addresses": mac + " dynamic"},
		},
		comment(fmt.Sprintf("MAC Address defined by add_mac_to_lsp for %s", portUUID)),
	}
	if _, err := c.transact(ctx, 5, ops); err != nil {
		return fmt.Errorf("add mac to logical switch port transact: %w", err)
	}
	return nil
}

func (c *LiveClient) AddDHCPOptionsToLSP(ctx context.Context, portUUID, optsUUID string) error {
	ops := []ovsdb.Operation{
		{
			Op:    ovsdb.OperationUpdate,
			Table: tableLogicalSwitchPort,
			Where: whereUUID(portUUID),
			Row:   ovsdb.Row{"dhcpv4_options": ovsdb.UUID{GoUUID: optsUUID}},
		},
		comment(fmt.Sprintf("Added by add_dhcp_options_to_lsp with: port_uuid=%s,dhcp_options_uuid=%s", portUUID, optsUUID)),
	}
	if _, err := c.transact(ctx, 7, ops); err != nil {
		return fmt.Errorf("add dhcp options to logical switch port transact: %w", err)
	}
	return nil
}

// RemoveLSP detaches the named port from its switch. The port row itself
// is left for the server to garbage-collect once unreferenced.
func (c *LiveClient) RemoveLSP(ctx context.Context, portName, switchName string) error {
	lspUUID, err := c.selectUUID(ctx, 8, tableLogicalSwitchPort, "name", portName)
	if err != nil {
		return fmt.Errorf("logical switch port %q lookup: %w", portName, err)
	}
	switchUUID, err := c.selectUUID(ctx, 9, tableLogicalSwitch, "name", switchName)
	if err != nil {
		return fmt.Errorf("logical switch %q lookup: %w", switchName, err)
	}

	ops := []ovsdb.Operation{
		{
			Op:    ovsdb.OperationMutate,
			Table: tableLogicalSwitch,
			Where: whereUUID(switchUUID),
			Mutations: []ovsdb.Mutation{{
				Column:  "ports",
				Mutator: ovsdb.MutateOperationDelete,
				Value:   uuidSet(ovsdb.UUID{GoUUID: lspUUID}),
			}},
		},
		comment(""),
	}
	if _, err := c.transact(ctx, 10, ops); err != nil {
		return fmt.Errorf("remove logical switch port transact: %w", err)
	}
	return nil
}

// CreateDHCPv4Options inserts the DHCPv4 option row for a subnet: a one
// hour lease, the .254 gateway, and a random server MAC.
func (c *LiveClient) CreateDHCPv4Options(ctx context.Context, cidr string) error {
	routerIP := dhcpRouterIP(cidr)
	ops := []ovsdb.Operation{
		{
			Op:    ovsdb.OperationInsert,
			Table: tableDHCPOptions,
			Row: ovsdb.Row{
				"cidr": cidr,
				"options": ovsdb.OvsMap{GoMap: map[interface{}]interface{}{
					"lease_time": "3600",
					"router":     routerIP,
					"server_id":  routerIP,
					"server_mac": GenerateMAC(),
				}},
			},
			UUIDName: "row1",
		},
		comment(fmt.Sprintf("Created by create_dhcpv4_options with cidr=%s at %s", cidr, time.Now().Format(time.RFC3339))),
	}
	if _, err := c.transact(ctx, 6, ops); err != nil {
		return fmt.Errorf("create dhcp options transact: %w", err)
	}
	return nil
}

func (c *LiveClient) GetDHCPv4OptionsID(ctx context.Context, cidr string) (string, error) {
	id, err := c.selectUUID(ctx, 20, tableDHCPOptions, "cidr", cidr)
	if err != nil {
		return "", fmt.Errorf("dhcp options for cidr %q lookup: %w", cidr, err)
	}
	return id, nil
}

func (c *LiveClient) DeleteDHCPv4Options(ctx context.Context, cidr string) error {
	id, err := c.GetDHCPv4OptionsID(ctx, cidr)
	if err != nil {
		return err
	}
	ops := []ovsdb.Operation{
		{
			Op:    ovsdb.OperationDelete,
			Table: tableDHCPOptions,
			Where: whereUUID(id),
		},
		comment(fmt.Sprintf("Deleted by delete_dhcpv4_options with cidr=%s at %s", cidr, time.Now().Format(time.RFC3339))),
	}
	if _, err := c.transact(ctx, 12, ops); err != nil {
		return fmt.Errorf("delete dhcp options transact: %w", err)
	}
	return nil
}

// GenerateMAC returns a random MAC in the locally-administered QEMU/KVM
// 52:54:00 range, lower-case and colon-separated.
func GenerateMAC() string {
	return fmt.Sprintf("52:54:00:%02x:%02x:%02x", rand.Intn(256), rand.Intn(256), rand.Intn(256))
}

// dhcpRouterIP derives the gateway handed out for a subnet: the first
// three octets of the CIDR with a host part of .254.
func dhcpRouterIP(cidr string) string {
	parts := strings.Split(cidr, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, ".") + ".254"
}

func comment(text string) ovsdb.Operation {
	return ovsdb.Operation{Op: ovsdb.OperationComment, Comment: &text}
}

func whereEq(column, value string) []ovsdb.Condition {
	return []ovsdb.Condition{{Column: column, Function: ovsdb.ConditionEqual, Value: value}}
}

func whereUUID(uuid string) []ovsdb.Condition {
	return []ovsdb.Condition{{Column: "_uuid", Function: ovsdb.ConditionEqual, Value: ovsdb.UUID{GoUUID: uuid}}}
}

// uuidSet wraps UUID references in explicit ["set", [...]] notation.
// OvsSet collapses single-member sets to a bare value, which the server
// accepts but is not the form the ports column mutations use.
func uuidSet(ids ...ovsdb.UUID) []interface{} {
	return []interface{}{"set", ids}
}
