package client

import "errors"

var (
	errNilManifest  = errors.New("client: manifest is nil")
	errEmptyApp     = errors.New("client: app is required")
	errJobNotFound  = errors.New("client: job not found")
	errEmptyPattern = errors.New("client: pattern is required")
)
