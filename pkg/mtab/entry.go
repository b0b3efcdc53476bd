package mtab

// Kind distinguishes the two entry variants this filesystem can synthesize.
type Kind uint8

const (
	// KindDirectory is the root directory, the single listable entry.
	KindDirectory Kind = iota

	// KindSymlink is a mount link whose target is the mount's root path
	// at resolution time.
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Entry is a point-in-time projection of mutable external state into a
// filesystem entry. Entries are synthesized per operation and are never
// authoritative past the call that produced them: the mount behind a link
// may be gone by the time the entry is used.
type Entry struct {
	// ID is the filesystem entry identifier: RootID for the root
	// directory, IDMap.EntryID(mountID) for a mount link.
	ID uint64

	// Name is the canonical decimal name of the mount id. Empty for the
	// root directory.
	Name string

	// Kind is the entry variant.
	Kind Kind

	// NoRetain tells host-side caches to discard this entry immediately
	// after use rather than keep it as a hit for future lookups. Every
	// entry this package synthesizes sets it: a cached positive could
	// report a mount as present after it has been unmounted.
	NoRetain bool
}

// DirEntry is one entry emitted during a directory listing, paired with the
// cursor value that resumes the listing immediately after it.
type DirEntry struct {
	Entry

	// NextCursor is the cursor to pass to the next ReadDir call to
	// continue after this entry.
	NextCursor uint64
}
