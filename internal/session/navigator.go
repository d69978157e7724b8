package session

// Navigator moves the user to the sign-in screen after a session ends
type Navigator interface {
	RedirectToSignIn(reason Reason)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(reason Reason)

// RedirectToSignIn calls f(reason)
func (f NavigatorFunc) RedirectToSignIn(reason Reason) {
	f(reason)
}

// Expire is the single teardown path used by the response interceptor and
// the idle timer: the session is cleared, then the user is sent to sign-in.
// It is safe to call concurrently and repeatedly.
func Expire(s *Store, nav Navigator, reason Reason) error {
	err := s.teardown(reason)
	if nav != nil {
		nav.RedirectToSignIn(reason)
	}
	return err
}
