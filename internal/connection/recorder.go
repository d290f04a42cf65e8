package connection

// Recorder receives connection metrics. internal/metrics.Collector
// implements it.
type Recorder interface {
	StateChanged(from, to string)
	MessageSent(msgType string)
	MessageReceived(msgType string)
	SendRejected(msgType string)
	ProtocolError()
	ReconnectScheduled()
	ReconnectAttempted()
	Countdown(remaining int)
}

type nopRecorder struct{}

func (nopRecorder) StateChanged(string, string) {}
func (nopRecorder) MessageSent(string)          {}
func (nopRecorder) MessageReceived(string)      {}
func (nopRecorder) SendRejected(string)         {}
func (nopRecorder) ProtocolError()              {}
func (nopRecorder) ReconnectScheduled()         {}
func (nopRecorder) ReconnectAttempted()         {}
func (nopRecorder) Countdown(int)               {}
