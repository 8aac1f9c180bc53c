package ports

// PushSender delivers envelopes to a web channel identified by the model id
// it was opened for. Implementations must be safe for concurrent use.
type PushSender interface {
	Send(channelID string, payload []byte) error
}
