package connection

// Channel is one instance of the underlying message channel. The client
// owns it exclusively and replaces it on every reconnect.
type Channel interface {
	// Send writes one text frame.
	Send(data []byte) error

	// Close tears the channel down. It must be safe to call more than once
	// and while establishment is still in flight.
	Close() error
}

// ChannelEvents receives the lifecycle and message callbacks of a single
// channel instance. Message is called in the order frames arrive.
type ChannelEvents struct {
	Open    func()
	Close   func(code int, reason string)
	Error   func(err error)
	Message func(data []byte)
}

// Dialer creates channels. Dial returns immediately; establishment success
// or failure is reported through events, never before Dial has returned.
type Dialer interface {
	Dial(url string, events ChannelEvents) Channel
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(url string, events ChannelEvents) Channel

func (f DialerFunc) Dial(url string, events ChannelEvents) Channel {
	return f(url, events)
}
