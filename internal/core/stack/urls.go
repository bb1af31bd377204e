package stack

import "fmt"

// =============================================================================
// Access URL Derivation
// =============================================================================

// localAliases are host names that refer to the deployment machine itself.
// For these the stack is reached over plain HTTP on the published port and
// no reachability probe is attempted.
var localAliases = map[string]bool{
	"localhost":   true,
	"127.0.0.1":   true,
	"::1":         true,
	"host.docker.internal": true,
}

// IsLocalAlias reports whether host refers to the local machine.
func IsLocalAlias(host string) bool {
	return localAliases[host]
}

// AccessURL derives the public URL of the repository from the configured
// reverse-proxy host. A local alias is served over plain HTTP on port 8080;
// any real host name goes through the proxy's TLS entrypoint.
func AccessURL(host string) string {
	if IsLocalAlias(host) {
		return "http://localhost:8080"
	}
	return fmt.Sprintf("https://%s", host)
}

// AdminURL is a named administrative interface of the stack.
type AdminURL struct {
	Name string
	URL  string
}

// AdminURLs returns the fixed set of administrative interfaces, derived
// from the configured host.
func AdminURLs(host string) []AdminURL {
	base := AccessURL(host)
	return []AdminURL{
		{Name: "Dataverse admin", URL: base + "/dataverseuser.xhtml"},
		{Name: "Traefik dashboard", URL: schemeHost(host, 8090)},
		{Name: "Solr admin", URL: schemeHost(host, 8983)},
		{Name: "MinIO console", URL: schemeHost(host, 9001)},
	}
}

func schemeHost(host string, port int) string {
	if IsLocalAlias(host) {
		return fmt.Sprintf("http://localhost:%d", port)
	}
	return fmt.Sprintf("https://%s:%d", host, port)
}
