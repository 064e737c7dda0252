package config

import (
	"fmt"
	"strings"
)

const (
	BackendMock = "mock"
	BackendCLI  = "cli"
)

func NormalizeBackend(raw string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(raw))
	if backend == "" {
		backend = BackendMock
	}
	switch backend {
	case BackendMock, BackendCLI:
		return backend, nil
	default:
		return "", fmt.Errorf("invalid backend %q (expected %s|%s)", raw, BackendMock, BackendCLI)
	}
}
