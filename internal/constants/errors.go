package constants

import "errors"

// Configuration errors.
var (
	ErrNoRouteSet           = errors.New("no route set configured")
	ErrConfigKeyUnknown     = errors.New("unknown configuration key")
	ErrPrivateKeyUnreadable = errors.New("private key could not be read")
)

// CLI errors.
var (
	ErrGroupRequired        = errors.New("resource group is required")
	ErrOperationRequired    = errors.New("operation name is required")
	ErrInvalidArgument      = errors.New("invalid argument, expected key=value")
	ErrInvalidHeaderFlag    = errors.New("invalid header, expected name:value")
	ErrWebhookSecretMissing = errors.New("webhook secret is required")
	ErrDirectoryTraversal   = errors.New("path contains directory traversal sequences")
)
