// Package version records the build version injected at link time.
package version

// Version is set via -ldflags "-X lorebridge/internal/version.Version=v1.2.3"
var Version = "dev"
