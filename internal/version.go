package internal

// Build information, populated at link time with -ldflags "-X ...".
var (
	Version = "unknown"
	Commit  = "unknown"
	Built   = "unknown"
)
