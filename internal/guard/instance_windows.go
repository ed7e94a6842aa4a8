//go:build windows

package guard

import "context"

func signalSwitch(int) error {
	return ErrSwitchUnsupported
}

// SwitchRequests never delivers on Windows. The channel is closed when ctx is done.
func SwitchRequests(ctx context.Context) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out
}
