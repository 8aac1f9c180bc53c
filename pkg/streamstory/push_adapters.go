package streamstory

import (
	"errors"
	"fmt"
	"sync"
)

// ErrChannelSenderClosed is returned when a channel sender is written to
// after being closed.
var ErrChannelSenderClosed = errors.New("streamstory: channel sender closed")

// ChannelMessage is one payload delivered through a channel sender.
type ChannelMessage struct {
	ChannelID string
	Payload   []byte
}

// SendFunc delivers a payload to the channel with the given id.
type SendFunc func(channelID string, payload []byte) error

// NewCallbackSender adapts a function into a full PushSender implementation
// so callers can plug arbitrary delivery mechanisms without defining structs.
func NewCallbackSender(name string, fn SendFunc) PushSender {
	if name == "" {
		name = "callback"
	}
	return &callbackSender{name: name, fn: fn}
}

// NewChannelSender exposes outbound payloads via a channel; it returns the
// sender, the read-only channel, and a close function that the caller should
// invoke during shutdown.
func NewChannelSender(name string, buffer int) (PushSender, <-chan ChannelMessage, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan ChannelMessage, buffer)
	s := &channelSender{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSender struct {
	name string
	fn   SendFunc
}

func (s *callbackSender) Send(channelID string, payload []byte) error {
	if s.fn == nil {
		return fmt.Errorf("callback sender %q: nil handler", s.name)
	}
	return s.fn(channelID, payload)
}

type channelSender struct {
	name   string
	ch     chan ChannelMessage
	closed chan struct{}
	once   sync.Once
}

func (s *channelSender) Send(channelID string, payload []byte) error {
	select {
	case <-s.closed:
		return ErrChannelSenderClosed
	default:
	}

	msg := ChannelMessage{ChannelID: channelID, Payload: append([]byte(nil), payload...)}

	select {
	case <-s.closed:
		return ErrChannelSenderClosed
	case s.ch <- msg:
		return nil
	}
}

func (s *channelSender) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}
