package async

// Job runs f in its own goroutine; the returned channel closes when f returns.
func Job(f func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f()
	}()
	return done
}

func Promise[R any](f func() R) <-chan R {
	out := make(chan R, 1)
	go func() {
		out <- f()
	}()
	return out
}

func Await0(a <-chan struct{}) {
	<-a
}

func Await[R any](a <-chan R) R {
	return <-a
}

// Gather0 closes once every channel in c has closed.
func Gather0(c ...<-chan struct{}) <-chan struct{} {
	return Job(func() {
		for _, f := range c {
			<-f
		}
	})
}

// Any0 closes as soon as one channel in c closes.
func Any0(c ...<-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	var s Signal[struct{}] = done
	for _, f := range c {
		go func() {
			select {
			case <-f:
				s.Notify()
			case <-done:
			}
		}()
	}
	return done
}
