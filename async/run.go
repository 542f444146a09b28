package async

// Run will run a function in a goroutine, returning its result via a buffered channel so the goroutine never leaks
// when nobody is left to receive.
func Run[T any](f func() T) <-chan T {
	c := make(chan T, 1)
	go func() {
		c <- f()
	}()
	return c
}
