// Package build provides build information that is linked into the application. Other
// packages within this project can use this information in logs etc..
package build

var (
	// Version is the build version of the client.
	Version = "dev"

	// Commit is the git commit the binary was built from.
	Commit = "none"

	// Date is the date the binary was built.
	Date = "unknown"

	// ProjectName is used as the namespace for metrics and the tracer prefix.
	ProjectName = "rhclient"

	// UserAgent is sent with every API request.
	UserAgent = ProjectName + "/" + Version
)
