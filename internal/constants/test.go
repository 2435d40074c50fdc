package constants

// Test Constants
//
// IMPORTANT: These constants are for testing only. DO NOT use in production code.

// Concurrency Test Constants
const (
	// TestConcurrentClientsSmall is the number of concurrent clients for small load tests
	TestConcurrentClientsSmall = 10
)

// Test client identity
const (
	// TestBuild is an accepted post-expansion client build (3.3.5a).
	TestBuild = 12340

	// TestPreExpansionBuild is an accepted vanilla client build (1.12.1).
	TestPreExpansionBuild = 5875

	// TestUnknownBuild is a build no table knows about.
	TestUnknownBuild = 1

	// TestLocale is the country tag the test client sends (reversed on the wire).
	TestLocale = "enUS"
)
