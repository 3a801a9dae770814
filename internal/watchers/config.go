package watchers

// StartApplyWatcher runs apply once and then again every time events fires,
// until stop is closed.
func StartApplyWatcher(stop <-chan struct{}, events <-chan struct{}, apply func()) {
	apply()

	for {
		select {
		case <-stop:
			return
		case <-events:
			apply()
		}
	}
}

// Signal returns a callback that queues at most one pending event on ch.
func Signal(ch chan struct{}) func() {
	return func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
