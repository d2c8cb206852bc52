package compute

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/kdomanski/iso9660"
)

// Cloud-init NoCloud payloads. The password is a bootstrap fallback for
// console access; key-based SSH is the real path in.
var userDataTemplate = template.Must(template.New("user-data").Parse(`#cloud-config
ssh_authorized_keys:
  - {{.PubKey}}
shell: /bin/bash
chpasswd:
  list: |
    cloud-user:temppassword123
  expire: False
`))

var metaDataTemplate = template.Must(template.New("meta-data").Parse(`instance-id: {{.Name}}
local-hostname: localhost.localdomain
`))

// generateSeed writes the cloud-init NoCloud seed ISO for the VM. The
// "cidata" volume label is what cloud-init scans for.
func (s *Server) generateSeed(pubKey, name string) error {
	var userData, metaData strings.Builder
	if err := userDataTemplate.Execute(&userData, struct{ PubKey string }{pubKey}); err != nil {
		return fmt.Errorf("render user-data: %w", err)
	}
	if err := metaDataTemplate.Execute(&metaData, struct{ Name string }{name}); err != nil {
		return fmt.Errorf("render meta-data: %w", err)
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return fmt.Errorf("create iso writer: %w", err)
	}
	defer writer.Cleanup()

	if err := writer.AddFile(strings.NewReader(userData.String()), "user-data"); err != nil {
		return fmt.Errorf("add user-data to iso: %w", err)
	}
	if err := writer.AddFile(strings.NewReader(metaData.String()), "meta-data"); err != nil {
		return fmt.Errorf("add meta-data to iso: %w", err)
	}

	f, err := os.Create(s.seedPath(name))
	if err != nil {
		return fmt.Errorf("create seed iso: %w", err)
	}
	defer f.Close()

	if err := writer.WriteTo(f, "cidata"); err != nil {
		return fmt.Errorf("write seed iso: %w", err)
	}
	return nil
}
