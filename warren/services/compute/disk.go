package compute

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// createDisk clones the base image for os into the VM's directory and
// grows it to sizeGB. Base images live at "{storage}/{OS}-base.qcow2"
// with the OS name uppercased.
func (s *Server) createDisk(osName, name string, sizeGB uint32) error {
	vmDir := filepath.Join(s.storagePath, name)
	if err := os.Mkdir(vmDir, 0o755); err != nil {
		return fmt.Errorf("create vm directory: %w", err)
	}

	base := filepath.Join(s.storagePath, strings.ToUpper(osName)+"-base.qcow2")
	disk := s.diskPath(name)

	if err := s.runner.Run("qemu-img", "convert", "-f", "qcow2", "-O", "qcow2", base, disk); err != nil {
		return fmt.Errorf("qemu-img convert: %w", err)
	}
	if err := s.runner.Run("qemu-img", "resize", disk, fmt.Sprintf("%dG", sizeGB)); err != nil {
		return fmt.Errorf("qemu-img resize: %w", err)
	}
	return nil
}

func (s *Server) diskPath(name string) string {
	return filepath.Join(s.storagePath, name, name+".qcow2")
}

func (s *Server) seedPath(name string) string {
	return filepath.Join(s.storagePath, name, "seed.iso")
}

// removeVMDir drops the VM's disk directory. Callers treat failure as a
// warning; the domain teardown matters more than the disk files.
func (s *Server) removeVMDir(name string) error {
	return os.RemoveAll(filepath.Join(s.storagePath, name))
}
