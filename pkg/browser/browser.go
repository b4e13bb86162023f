// Package browser opens the catalog served by catalogmix in the default browser.
package browser

import (
	"fmt"
	"net"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// Opener launches the platform's URL handler.
type Opener struct {
	goos  string
	start func(name string, args ...string) error
}

// NewOpener returns an Opener for the current platform.
func NewOpener() *Opener {
	return &Opener{
		goos: runtime.GOOS,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start() // #nosec G204 -- URL validated by Open
		},
	}
}

// Open opens the specified URL in the default browser.
func Open(rawURL string) error {
	return NewOpener().Open(rawURL)
}

// Open validates rawURL before handing it to the system, so only plain
// http(s) URLs ever reach the shell-facing launcher.
func (o *Opener) Open(rawURL string) error {
	if strings.ContainsAny(rawURL, " \t\r\n\x00") {
		return fmt.Errorf("invalid URL: contains whitespace or control characters")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q (only http and https allowed)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	switch o.goos {
	case "linux", "freebsd", "openbsd":
		return o.start("xdg-open", rawURL)
	case "darwin":
		return o.start("open", rawURL)
	case "windows":
		return o.start("rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		return fmt.Errorf("unsupported platform: %s", o.goos)
	}
}

// LocalURL turns a listen address such as ":8080" or "0.0.0.0:8080" into a
// URL a local browser can reach.
func LocalURL(addr, path string) (string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	u := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(host, port),
		Path:   path,
	}
	return u.String(), nil
}
