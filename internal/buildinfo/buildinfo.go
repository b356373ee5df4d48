// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/abccollege/college-chatbot-go/internal/buildinfo.Version=...
var Version = "dev"

// Commit is the git commit SHA for this build.
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
var BuildDate = ""
