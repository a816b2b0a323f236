package mq

import "errors"

type TempError struct {
	Err error
}

func (e TempError) Error() string {
	return e.Err.Error()
}

func (e TempError) Unwrap() error {
	return e.Err
}

func (e TempError) Temporary() bool {
	return true
}

// Temporary marks err as retryable; the delivery is requeued instead of
// dead-lettered.
func Temporary(err error) error {
	return TempError{Err: err}
}

func ShouldRequeue(err error) bool {
	var te TempError
	return errors.As(err, &te) && te.Temporary()
}
