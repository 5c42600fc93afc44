//go:build linux

package main

import (
	"fmt"

	"github.com/1broseidon/deskmod/internal/platform"
)

func openX11() (platform.Backend, func(), error) {
	backend, err := platform.NewLinuxBackendFromDisplay()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to display: %w", err)
	}
	return backend, backend.Disconnect, nil
}
