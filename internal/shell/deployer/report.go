package deployer

import (
	"fmt"
	"os"
	"strings"

	"github.com/openrdr/dvup/internal/core/fsplan"
	"github.com/openrdr/dvup/internal/core/stack"
)

// =============================================================================
// Summary and Failure Reports
// =============================================================================

// printSummary renders the post-deployment report: access URL, admin
// interfaces, the administrator password and next-step guidance.
func (d *Deployer) printSummary(result *Result) {
	host := result.Settings.TraefikHost()

	d.console.Blank()
	if result.Evaluation.AllRunning {
		d.console.Success("deployment complete: all %d services are running", result.Evaluation.Total)
	} else {
		d.console.Success("deployment started: %d of %d services running",
			result.Evaluation.RunningCount, result.Evaluation.Total)
	}

	d.console.Blank()
	d.console.Plain("  Repository URL:  %s", stack.AccessURL(host))
	for _, admin := range stack.AdminURLs(host) {
		d.console.Plain("  %-16s %s", admin.Name+":", admin.URL)
	}

	d.console.Blank()
	password, err := os.ReadFile(fsplan.AdminPasswordPath(d.cfg.SecretsDir))
	if err != nil {
		d.console.Warning("could not read %s: %v", fsplan.AdminPasswordSecret.Name, err)
	} else {
		d.console.Plain("  Admin login:     dataverseAdmin / %s", strings.TrimSpace(string(password)))
	}

	d.console.Blank()
	d.console.Plain("  The web application bootstraps on first start; this can take several minutes.")
	d.console.Plain("  Follow progress with:")
	d.console.Plain("    docker logs -f %s", stack.ContainerName(d.cfg.Project, stack.ServiceDataverse))
}

// printFailure renders the failure report with a log-inspection hint.
func (d *Deployer) printFailure(states []stack.ServiceState) {
	d.console.Blank()
	d.console.Error("deployment failed: no service reached the running state")

	for _, s := range states {
		state := s.State
		if s.Health != "" {
			state = fmt.Sprintf("%s (%s)", s.State, s.Health)
		}
		d.console.Plain("  %-12s %s", s.Service, state)
	}

	d.console.Blank()
	d.console.Plain("  Inspect the containers and their logs with:")
	d.console.Plain("    docker ps -a --filter label=%s=%s", stack.LabelStack, d.cfg.Project)
	d.console.Plain("    docker logs %s", stack.ContainerName(d.cfg.Project, stack.ServiceDataverse))
}
