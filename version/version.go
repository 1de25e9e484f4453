package version

// Version components
const (
	Maj = "0"
	Min = "4"
	Fix = "0"

	// AppVer is reported to tendermint and changes with every state machine change
	AppVer = 1
)

var (
	// Must be a string because release scripts read this file.
	Version = Maj + "." + Min + "." + Fix

	// GitCommit is the current HEAD set using ldflags.
	GitCommit string
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}
