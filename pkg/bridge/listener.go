package bridge

import "errors"

// ErrListenerClosed reports a send to a closed listener.
var ErrListenerClosed = errors.New("listener closed")

// ChannelListener is the reference Listener transport: messages are pushed
// onto a buffered channel the client drains. A full buffer fails the send,
// which prunes the listener rather than blocking the bridge.
type ChannelListener struct {
	messages chan ExternalMessage
	closed   chan struct{}
}

func NewChannelListener(buffer int) *ChannelListener {
	if buffer <= 0 {
		buffer = 16
	}

	return &ChannelListener{
		messages: make(chan ExternalMessage, buffer),
		closed:   make(chan struct{}),
	}
}

func (l *ChannelListener) Send(message ExternalMessage) error {
	select {
	case <-l.closed:
		return ErrListenerClosed
	default:
	}

	select {
	case l.messages <- message:
		return nil
	default:
		return errors.New("listener buffer full")
	}
}

// Messages returns the channel the client drains.
func (l *ChannelListener) Messages() <-chan ExternalMessage {
	return l.messages
}

// Close marks the listener dead. Subsequent sends fail, which makes the
// bridge prune it.
func (l *ChannelListener) Close() {
	select {
	case <-l.closed:
	default:
		close(l.closed)
	}
}
