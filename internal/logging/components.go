package logging

// Component constants for structured logging
const (
	ComponentStartup   = "startup"
	ComponentShutdown  = "shutdown"
	ComponentConfig    = "config"
	ComponentAPIDither = "api-dither"
	ComponentPool      = "pool"
	ComponentHTTP      = "http"
	ComponentCLI       = "cli"
)
