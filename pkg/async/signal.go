package async

import "sync"

var signalMutex sync.Mutex

// Signal is a one-shot notification. The zero value is inert until Signal
// is called.
type Signal[T any] chan T

// Notify closes the channel once. It reports whether this call closed it.
func (s *Signal[T]) Notify() bool {
	signalMutex.Lock()
	defer signalMutex.Unlock()

	if *s == nil {
		return false
	}
	select {
	case <-*s:
		return false
	default:
		close(*s)
		return true
	}
}

// NotifyValue hands value to a waiter, if one is blocked on the signal,
// and reports whether it did.
func (s *Signal[T]) NotifyValue(value T) bool {
	if *s == nil {
		return false
	}
	select {
	case *s <- value:
		return true
	default:
		return false
	}
}

func (s *Signal[T]) Signal() <-chan T {
	*s = make(chan T)
	return *s
}

// Done reports whether Notify has closed the signal.
func (s *Signal[T]) Done() bool {
	if *s == nil {
		return false
	}
	select {
	case <-*s:
		return true
	default:
		return false
	}
}
