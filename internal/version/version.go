// ABOUTME: Version constants for the broadcast sink
// ABOUTME: Reported at startup and in the console header
package version

const (
	// Version is the release version
	Version = "0.1.0"

	// Product is the product name
	Product = "LE Audio Broadcast Sink"

	// Manufacturer identifies who built it
	Manufacturer = "Resonate"
)
