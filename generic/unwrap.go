package generic

import "fmt"

// Expect returns value, or panics with msg and err if err is not nil. Call it as Expect[T](msg)(f()).
func Expect[T any](msg string) func(T, error) T {
	return func(value T, err error) T {
		if err != nil {
			panic(fmt.Errorf("%s: %w", msg, err))
		}
		return value
	}
}

// Unwrap returns value, or panics if err is not nil.
func Unwrap[T any](value T, err error) T {
	return Expect[T]("tried to Unwrap() an error")(value, err)
}

// Unwrap_ is like Unwrap, but for return values that are just an error.
func Unwrap_(err error) {
	if err != nil {
		panic(fmt.Errorf("tried to Unwrap_() an error: %w", err))
	}
}
