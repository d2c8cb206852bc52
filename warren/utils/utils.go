// Package utils holds process management and download helpers shared by
// the warren services: pid files for start/stop, and the base image
// fetcher used by `warren image fetch`.
package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/pterm/pterm"
)

func ReadPidFile(name string) (int, error) {
	pidFile, err := os.ReadFile(filepath.Join(pidPath(), fmt.Sprintf("%s.pid", name)))
	if err != nil {
		return 0, err
	}

	// Strip whitespace and \r or \n
	pidFile = bytes.TrimSpace(pidFile)

	return strconv.Atoi(string(pidFile))
}

func GeneratePidFile(name string) (string, error) {
	if name == "" {
		return "", errors.New("name is required")
	}

	pidPath := pidPath()
	if pidPath == "" {
		return "", errors.New("pid path is empty")
	}

	return filepath.Join(pidPath, fmt.Sprintf("%s.pid", name)), nil
}

func WritePidFile(name string, pid int) error {
	pidFilename, err := GeneratePidFile(name)
	if err != nil {
		return err
	}

	pidFile, err := os.Create(pidFilename)
	if err != nil {
		return err
	}

	defer pidFile.Close()
	pidFile.WriteString(fmt.Sprintf("%d", pid))

	return nil
}

func RemovePidFile(serviceName string) error {
	return os.Remove(filepath.Join(pidPath(), fmt.Sprintf("%s.pid", serviceName)))
}

// pidPath picks the runtime directory for pid files: XDG runtime dir,
// ~/warren when it exists, otherwise the system temp dir.
func pidPath() string {
	var pidPath string

	if os.Getenv("XDG_RUNTIME_DIR") != "" {
		pidPath = os.Getenv("XDG_RUNTIME_DIR")
	} else if dirExists(filepath.Join(os.Getenv("HOME"), "warren")) {
		pidPath = filepath.Join(os.Getenv("HOME"), "warren")
	} else {
		pidPath = os.TempDir()
	}

	return pidPath
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func StopProcess(serviceName string) error {
	pid, err := ReadPidFile(serviceName)
	if err != nil {
		return err
	}

	err = KillProcess(pid)
	if err != nil {
		return err
	}

	return RemovePidFile(serviceName)
}

func KillProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	// SIGTERM first (graceful)
	err = process.Signal(syscall.SIGTERM)
	if err != nil {
		return err
	}

	checks := 0
	for {
		time.Sleep(1 * time.Second)
		process, err = os.FindProcess(pid)
		if err != nil {
			return err
		}

		err = process.Signal(syscall.Signal(0))
		if err != nil {
			// Process terminated
			break
		}

		checks++
		if checks > 5 {
			// Still running after SIGTERM, force kill
			if err := process.Signal(syscall.SIGKILL); err != nil {
				return err
			}
			break
		}
	}

	return nil
}

// DownloadFileWithProgress fetches url into filename, rendering a
// progress bar when the server reports a length and a byte-counting
// spinner otherwise. Ctrl+C cancels the transfer.
func DownloadFileWithProgress(url string, name string, filename string, timeout time.Duration) (err error) {
	ctx, cancel := context.WithCancel(context.Background())
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()
	intCh := make(chan os.Signal, 1)
	signal.Notify(intCh, os.Interrupt)
	go func() {
		<-intCh
		cancel()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("request error: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("file create error: %v", err)
	}
	defer f.Close()

	cl := resp.ContentLength

	if cl > 0 {
		bar, _ := pterm.DefaultProgressbar.
			WithTitle(fmt.Sprintf("Downloading %s", name)).
			WithTotal(int(cl)).
			Start()

		var written int64
		reader := io.TeeReader(resp.Body, progressWriter(func(n int) {
			written += int64(n)
			bar.Add(n)
		}))

		_, err = io.Copy(f, reader)
		bar.Stop()
		if err != nil {
			return fmt.Errorf("copy error: %v", err)
		}

		pterm.Printf("Saved %s (%s)\n", filename, humanBytes(uint64(written)))
		return nil
	}

	spin, _ := pterm.DefaultSpinner.
		WithText("Downloading (size unknown)...").
		Start()
	defer spin.Stop()

	var written int64
	reader := io.TeeReader(resp.Body, progressWriter(func(n int) {
		written += int64(n)
		spin.UpdateText(fmt.Sprintf("Downloading %s (%s) ...", name, humanBytes(uint64(written))))
	}))
	_, err = io.Copy(f, reader)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("copy error: %v", err)
	}

	pterm.Printf("Saved %s (%s)\n", filename, humanBytes(uint64(written)))

	return nil
}

// progressWriter turns byte counts into a callback for UI updates.
type progressWriter func(n int)

func (pw progressWriter) Write(p []byte) (int, error) {
	pw(len(p))
	return len(p), nil
}

func humanBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPEZY"[exp])
}
