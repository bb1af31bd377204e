// Package fsplan contains pure functions that plan the filesystem
// preparation for a deployment: which directories must exist, which secret
// files get locked down and which init scripts become executable. The shell
// layer executes the plan; this package never touches the disk.
package fsplan

import (
	"io/fs"
	"path/filepath"
)

// =============================================================================
// Permission Modes
// =============================================================================

const (
	// SecretMode restricts a credential file to owner read/write.
	SecretMode fs.FileMode = 0o600
	// ScriptMode makes an init script owner-executable and world-readable.
	ScriptMode fs.FileMode = 0o755
	// DirMode is used for created data directories.
	DirMode fs.FileMode = 0o755
)

// =============================================================================
// Plan Types
// =============================================================================

// Secret names a credential file relative to the secrets directory.
type Secret struct {
	Name string // human-readable, used in diagnostics and the summary
	Path string // relative to the secrets directory
}

// AdminPasswordSecret is the secret echoed in the deployment summary.
var AdminPasswordSecret = Secret{Name: "administrator password", Path: "admin/password"}

// Secrets is the fixed set of credential files whose permissions are forced
// to SecretMode before startup. Contents are never parsed by the driver.
var Secrets = []Secret{
	AdminPasswordSecret,
	{Name: "API key", Path: "api/key"},
	{Name: "database password", Path: "db/password"},
	{Name: "DOI service password", Path: "doi/password"},
}

// DataDirs is the fixed set of data directories, relative to the data root,
// created (idempotently) before startup.
var DataDirs = []string{
	"data/database",
	"data/solr",
	"data/minio",
	"data/traefik",
	"data/uploads",
	"docroot",
}

// Plan is the filesystem preparation for one deployment, with all paths
// resolved against the configured roots.
type Plan struct {
	// Dirs are created with DirMode if absent.
	Dirs []string
	// SecretFiles are chmodded to SecretMode when present.
	SecretFiles []string
	// ScriptsDir has every regular file inside chmodded to ScriptMode.
	ScriptsDir string
}

// Build resolves the fixed directory and secret sets against the given
// roots. All three arguments may be relative; they are joined, not cleaned
// of symlinks - execution happens on the deployment host as-is.
func Build(dataRoot, secretsDir, scriptsDir string) Plan {
	plan := Plan{ScriptsDir: scriptsDir}

	for _, dir := range DataDirs {
		plan.Dirs = append(plan.Dirs, filepath.Join(dataRoot, dir))
	}
	for _, secret := range Secrets {
		plan.SecretFiles = append(plan.SecretFiles, filepath.Join(secretsDir, secret.Path))
	}

	return plan
}

// AdminPasswordPath resolves the administrator password file against the
// secrets directory.
func AdminPasswordPath(secretsDir string) string {
	return filepath.Join(secretsDir, AdminPasswordSecret.Path)
}
