package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// ValidateEndpoint accepts absolute http and https URLs with a host.
func ValidateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	switch {
	case endpoint == "":
		return errors.New("endpoint is empty")
	case err != nil:
		return fmt.Errorf("endpoint %q: %w", endpoint, err)
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("endpoint %q: scheme must be http or https", endpoint)
	case u.Host == "":
		return fmt.Errorf("endpoint %q: missing host", endpoint)
	}
	return nil
}

// ValidateRedisNode accepts host:port with a port in 1..65535.
func ValidateRedisNode(node string) error {
	host, port, err := net.SplitHostPort(node)
	if err != nil {
		return fmt.Errorf("valkey node %q: %w", node, err)
	}
	if host == "" {
		return fmt.Errorf("valkey node %q: missing host", node)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("valkey node %q: invalid port", node)
	}
	return nil
}
