// Package traefik provides pure functions for generating the reverse proxy
// labels that route the configured public host to the repository's web
// application. No I/O; the deployer merges the labels into the container
// spec before creation.
package traefik

import "fmt"

// LabelParams contains parameters for generating routing labels.
type LabelParams struct {
	// Project names the stack instance; it keeps router names unique when
	// several stacks share one proxy.
	Project string

	// ServiceName is the routed service (normally the web application).
	ServiceName string

	// Hostname is the public host the router matches on.
	Hostname string

	// Port is the container port traffic is forwarded to.
	Port int

	// EnableTLS adds an HTTPS router with ACME certificate resolution.
	// Off for local deployments served over plain HTTP.
	EnableTLS bool
}

// GenerateLabels generates reverse proxy labels for a service.
//
// The labels enable routing for the container, create an HTTP router with a
// Host rule and set the loadbalancer port. With TLS enabled, a second
// router terminates HTTPS using the letsencrypt certificate resolver.
func GenerateLabels(params LabelParams) map[string]string {
	name := fmt.Sprintf("%s-%s", params.Project, params.ServiceName)

	labels := map[string]string{
		"traefik.enable": "true",

		fmt.Sprintf("traefik.http.routers.%s.rule", name):        fmt.Sprintf("Host(`%s`)", params.Hostname),
		fmt.Sprintf("traefik.http.routers.%s.entrypoints", name): "web",

		fmt.Sprintf("traefik.http.services.%s.loadbalancer.server.port", name): fmt.Sprintf("%d", params.Port),
	}

	if params.EnableTLS {
		secureName := name + "-secure"
		labels[fmt.Sprintf("traefik.http.routers.%s.rule", secureName)] = fmt.Sprintf("Host(`%s`)", params.Hostname)
		labels[fmt.Sprintf("traefik.http.routers.%s.entrypoints", secureName)] = "websecure"
		labels[fmt.Sprintf("traefik.http.routers.%s.tls", secureName)] = "true"
		labels[fmt.Sprintf("traefik.http.routers.%s.tls.certresolver", secureName)] = "letsencrypt"
	}

	return labels
}
