package compute

import (
	"fmt"
	"strings"
	"text/template"
)

// domainParams feeds the libvirt domain templates. Memory is in KiB, the
// unit libvirt expects.
type domainParams struct {
	DomainName string
	MemoryKiB  uint64
	CPU        uint32
	MacAddr    string
	DiskPath   string
	SeedPath   string
	TargetDev  string
}

// Domains boot the qcow2 root disk plus a cloud-init seed ISO on a SATA
// cdrom, with the NIC as a plain ethernet tap the OVS layer picks up.
// aarch64 additionally needs EFI firmware (secure boot off) and a GICv2.
var x86DomainTemplate = template.Must(template.New("x86_64").Parse(`<domain type='kvm'>
  <name>{{.DomainName}}</name>
  <memory unit='KiB'>{{.MemoryKiB}}</memory>
  <vcpu placement='static'>{{.CPU}}</vcpu>
  <os>
    <type arch='x86_64' machine='q35'>hvm</type>
  </os>
  <cpu mode='host-passthrough'/>
  <features>
    <acpi/>
  </features>
  <devices>
    <disk type='file' device='disk'>
      <driver name='qemu' type='qcow2'/>
      <source file='{{.DiskPath}}'/>
      <target dev='vda' bus='virtio'/>
      <address type='pci' slot='0x04'/>
    </disk>
    <disk type='file' device='cdrom'>
      <driver name='qemu' type='raw'/>
      <source file='{{.SeedPath}}' index='1'/>
      <backingStore/>
      <target dev='sda' bus='sata'/>
      <readonly/>
      <alias name='sata0-0-0'/>
      <address type='drive' controller='0' bus='0' target='0' unit='0'/>
    </disk>
    <interface type='ethernet'>
      <mac address='{{.MacAddr}}'/>
      <target dev='{{.TargetDev}}'/>
      <model type='virtio'/>
    </interface>
    <console type='pty'>
      <target type='serial' port='0'/>
    </console>
    <rng model='virtio'>
      <backend model='random'>/dev/urandom</backend>
      <alias name='rng0'/>
      <address type='pci' domain='0x0000' bus='0x05' slot='0x00' function='0x0'/>
    </rng>
    <channel type='unix'>
      <target type='virtio' name='org.qemu.guest_agent.0'/>
      <address type='virtio-serial' controller='0' bus='0' port='1'/>
    </channel>
  </devices>
</domain>
`))

var aarch64DomainTemplate = template.Must(template.New("aarch64").Parse(`<domain type='kvm'>
  <name>{{.DomainName}}</name>
  <memory unit='KiB'>{{.MemoryKiB}}</memory>
  <vcpu placement='static'>{{.CPU}}</vcpu>
  <os firmware='efi'>
    <type arch='aarch64' machine='virt-7.2'>hvm</type>
    <firmware>
      <feature enabled='no' name='secure-boot'/>
    </firmware>
    <boot dev='hd'/>
  </os>
  <cpu mode='host-passthrough'/>
  <features>
    <acpi/>
    <gic version='2'/>
  </features>
  <devices>
    <disk type='file' device='disk'>
      <driver name='qemu' type='qcow2'/>
      <source file='{{.DiskPath}}'/>
      <target dev='vda' bus='virtio'/>
      <address type='pci' slot='0x04'/>
    </disk>
    <disk type='file' device='cdrom'>
      <driver name='qemu' type='raw'/>
      <source file='{{.SeedPath}}' index='1'/>
      <backingStore/>
      <target dev='sda' bus='sata'/>
      <readonly/>
      <alias name='sata0-0-0'/>
      <address type='drive' controller='0' bus='0' target='0' unit='0'/>
    </disk>
    <interface type='ethernet'>
      <mac address='{{.MacAddr}}'/>
      <target dev='{{.TargetDev}}'/>
      <model type='virtio'/>
    </interface>
    <console type='pty'>
      <target type='serial' port='0'/>
    </console>
    <rng model='virtio'>
      <backend model='random'>/dev/urandom</backend>
      <alias name='rng0'/>
      <address type='pci' domain='0x0000' bus='0x05' slot='0x00' function='0x0'/>
    </rng>
    <channel type='unix'>
      <target type='virtio' name='org.qemu.guest_agent.0'/>
      <address type='virtio-serial' controller='0' bus='0' port='1'/>
    </channel>
  </devices>
</domain>
`))

// domainXML renders the libvirt definition for the host architecture.
func domainXML(arch string, p domainParams) (string, error) {
	var tmpl *template.Template
	switch arch {
	case "x86_64":
		tmpl = x86DomainTemplate
	case "aarch64":
		tmpl = aarch64DomainTemplate
	default:
		return "", fmt.Errorf("unsupported host architecture %q", arch)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, p); err != nil {
		return "", fmt.Errorf("render domain xml: %w", err)
	}
	return out.String(), nil
}
