package ports

// Server defines the interface for an outward-facing request surface
type Server interface {
	// Start starts serving requests
	Start() error

	// Stop stops the server
	Stop() error
}
