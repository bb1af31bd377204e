// Package fsprep executes a filesystem preparation plan: creating data
// directories, locking down secret files and marking init scripts
// executable. This is part of the Imperative Shell. All operations are
// idempotent; re-running the driver is the recovery mechanism.
package fsprep

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openrdr/dvup/internal/core/fsplan"
)

// Preparer applies fsplan.Plan values to the local filesystem.
type Preparer struct {
	logger *slog.Logger
}

// NewPreparer creates a new Preparer.
func NewPreparer(logger *slog.Logger) *Preparer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preparer{logger: logger}
}

// Apply executes the plan. Directory creation failures are fatal; a missing
// secret file or init-scripts directory is only a warning, since the stack
// can come up without them and the summary names what was skipped.
// Returned warnings are human-readable, one per skipped item.
func (p *Preparer) Apply(plan fsplan.Plan) ([]string, error) {
	var warnings []string

	for _, dir := range plan.Dirs {
		if err := os.MkdirAll(dir, fsplan.DirMode); err != nil {
			return warnings, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		p.logger.Debug("ensured directory", "path", dir)
	}

	for _, secret := range plan.SecretFiles {
		if _, err := os.Stat(secret); err != nil {
			if os.IsNotExist(err) {
				warnings = append(warnings, fmt.Sprintf("secret file %s does not exist, skipping", secret))
				continue
			}
			return warnings, fmt.Errorf("failed to stat secret file %s: %w", secret, err)
		}
		if err := os.Chmod(secret, fsplan.SecretMode); err != nil {
			return warnings, fmt.Errorf("failed to restrict permissions on %s: %w", secret, err)
		}
		p.logger.Debug("restricted secret file", "path", secret, "mode", fmt.Sprintf("%#o", fsplan.SecretMode))
	}

	if plan.ScriptsDir != "" {
		scriptWarnings, err := p.markScriptsExecutable(plan.ScriptsDir)
		warnings = append(warnings, scriptWarnings...)
		if err != nil {
			return warnings, err
		}
	}

	return warnings, nil
}

// markScriptsExecutable chmods every regular file in dir to ScriptMode.
func (p *Preparer) markScriptsExecutable(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{fmt.Sprintf("init scripts directory %s does not exist, skipping", dir)}, nil
		}
		return nil, fmt.Errorf("failed to read init scripts directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Chmod(path, fsplan.ScriptMode); err != nil {
			return nil, fmt.Errorf("failed to mark %s executable: %w", path, err)
		}
		p.logger.Debug("marked init script executable", "path", path)
	}

	return nil, nil
}
