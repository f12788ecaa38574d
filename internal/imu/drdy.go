package imu

// dataReady delivers one wake-up per rising edge on the sensor INT1 line.
// Edges that arrive while a wake-up is still pending are coalesced.
type dataReady interface {
	C() <-chan struct{}
	Close() error
}
