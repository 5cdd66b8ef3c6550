package domain

// RepositoryID identifies a repository for blacklisting and logging.
type RepositoryID string

// AccessKind selects one of the two views of a repository.
type AccessKind int

const (
	AccessLocal  AccessKind = iota // Cached/local view, never blacklisted
	AccessRemote                   // Network view, protected by the blacklist
)

func (k AccessKind) String() string {
	switch k {
	case AccessLocal:
		return "local"
	case AccessRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// FetchCost estimates how expensive fetching component metadata is.
type FetchCost int

const (
	FetchFast FetchCost = iota
	FetchCheap
	FetchExpensive
)

func (c FetchCost) String() string {
	switch c {
	case FetchFast:
		return "fast"
	case FetchCheap:
		return "cheap"
	default:
		return "expensive"
	}
}
