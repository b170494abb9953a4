package telemetry

// Config holds the OTLP tracing settings.
type Config struct {
	Enabled bool

	// ServiceName and ServiceVersion identify this process in the trace
	// backend.
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector address (host:port).
	Endpoint string

	// Insecure disables TLS on the collector connection.
	Insecure bool

	// SampleRate is the fraction of traces to export, 0.0 to 1.0.
	SampleRate float64
}

// DefaultConfig returns the settings for a local collector with tracing
// switched off.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "cipherdrop",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
