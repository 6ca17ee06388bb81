// Package reveal opens a scanned path in the host file manager.
package reveal

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Open shows path in the platform file manager, selecting the file where
// the platform supports it. The path must exist.
func Open(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reveal %q: %w", path, err)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		if info.IsDir() {
			cmd = exec.Command("open", path)
		} else {
			cmd = exec.Command("open", "-R", path)
		}
	case "windows":
		if info.IsDir() {
			cmd = exec.Command("explorer", path)
		} else {
			cmd = exec.Command("explorer", "/select,"+path)
		}
	default:
		// Most file managers can't select a file; open the directory.
		dir := path
		if !info.IsDir() {
			dir = filepath.Dir(path)
		}
		cmd = exec.Command("xdg-open", dir)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("reveal %q: %w", path, err)
	}
	// The file manager owns its own lifetime.
	go func() { _ = cmd.Wait() }()
	return nil
}
