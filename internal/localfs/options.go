package localfs

// ListOptions configures ListDirectory.
type ListOptions struct {
	// IncludeHidden includes dot-prefixed entries. Default false.
	IncludeHidden bool
}

// WalkOptions configures Walk.
type WalkOptions struct {
	// IncludeHidden includes dot-prefixed files and directories.
	IncludeHidden bool

	// SkipHiddenDirs skips descending into hidden directories entirely.
	// Only meaningful when IncludeHidden is false.
	SkipHiddenDirs bool
}
