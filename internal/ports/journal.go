package ports

// Journal is an append-only line journal used to persist recognized states
// and activities across restarts.
type Journal interface {
	AppendLine(line string) error
	Lines() ([]string, error)
	Close() error
}
