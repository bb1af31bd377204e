// Package stack contains pure functions describing the data-repository
// stack: its fixed service set, resource naming, access URL derivation and
// readiness evaluation. This is part of the Functional Core - no I/O.
package stack

import "fmt"

// =============================================================================
// Service Set
// =============================================================================

// Names of the services that make up the stack. The driver holds no
// lifecycle state for them; Docker owns that.
const (
	ServiceDataverse = "dataverse"
	ServicePostgres  = "postgres"
	ServiceSolr      = "solr"
	ServiceMinio     = "minio"
	ServiceTraefik   = "traefik"
)

// Services is the fixed service set, in no particular order. Start order
// comes from the compose file's depends_on graph.
var Services = []string{
	ServiceDataverse,
	ServicePostgres,
	ServiceSolr,
	ServiceMinio,
	ServiceTraefik,
}

// =============================================================================
// Labels
// =============================================================================

// Container labels used to identify stack resources. Status queries filter
// on LabelStack instead of scanning textual tool output.
const (
	LabelStack   = "io.dvup.stack"
	LabelService = "io.dvup.service"
	LabelRun     = "io.dvup.run"
)

// =============================================================================
// Resource Naming Functions
// =============================================================================

// NetworkName generates the name of the isolated network the stack joins.
// Pattern: dvup_{project}
func NetworkName(project string) string {
	return fmt.Sprintf("dvup_%s", project)
}

// VolumeName generates a volume name for the stack.
// Pattern: dvup_{project}_{volumeName}
func VolumeName(project, volumeName string) string {
	return fmt.Sprintf("dvup_%s_%s", project, volumeName)
}

// ContainerName generates a container name for a service in the stack.
// Pattern: dvup_{project}_{serviceName}
func ContainerName(project, serviceName string) string {
	return fmt.Sprintf("dvup_%s_%s", project, serviceName)
}
