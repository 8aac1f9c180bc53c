package ports

// Base is a storage context a model reads observations from. The shared
// realtime base is owned by the runtime; bases opened for a single session
// are closed when the session rebinds or expires.
type Base interface {
	IsClosed() bool
	Close() error
}
