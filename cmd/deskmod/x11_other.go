//go:build !linux

package main

import (
	"errors"

	"github.com/1broseidon/deskmod/internal/platform"
)

func openX11() (platform.Backend, func(), error) {
	return nil, nil, errors.New("the x11 backend is only available on linux")
}
