// Package buildinfo holds the version stamped in at link time.
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("projcheck %s (commit=%s, date=%s)", Version, Commit, Date)
}
