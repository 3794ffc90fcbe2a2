package core

import (
	"github.com/git-pkgs/tsmm/client"
)

// Type aliases so backends only need to import core.
type (
	Client     = client.Client
	Option     = client.Option
	URLBuilder = client.URLBuilder
)

// Function aliases for backends.
var (
	DefaultClient  = client.DefaultClient
	NewClient      = client.NewClient
	WithTimeout    = client.WithTimeout
	WithMaxRetries = client.WithMaxRetries
	WithUserAgent  = client.WithUserAgent
)
