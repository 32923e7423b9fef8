package testutil

import (
	"os"
	"runtime"
)

// this can be overridden by ldflags
var (
	PostgresImage   = "postgres"
	PostgresVersion = "13"
	DockerSwitchIP  = func() string {
		switch runtime.GOOS {
		case "darwin", "windows":
			return "host.docker.internal"
		default:
			return "localhost"
		}
	}()
	// PostgresURL points the tests at an existing server instead of a container.
	PostgresURL     = os.Getenv("ACEMAN_TEST_POSTGRES_URL")
	SkipDockerTests = func() bool {
		if len(os.Getenv("SKIP_DOCKER_TESTS")) > 0 {
			return true
		}
		if len(os.Getenv("CI")) > 0 {
			// skip in CI
			return true
		}
		return false
	}()
)
