package worker

// gossipOperations broadcasts the known peers on every tick.
func (w *Worker[P]) gossipOperations() {
	w.evHandler("worker: gossipOperations: G started")
	defer w.evHandler("worker: gossipOperations: G completed")

	for {
		select {
		case <-w.gossipTicker.C:
			if !w.isShutdown() {
				if err := w.state.BroadcastPeerList(); err != nil {
					w.evHandler("worker: gossipOperations: ERROR: %s", err)
				}
			}
		case <-w.shut:
			w.evHandler("worker: gossipOperations: received shut signal")
			return
		}
	}
}

// pruneOperations drops rarely seen alternate chains on every tick.
func (w *Worker[P]) pruneOperations() {
	w.evHandler("worker: pruneOperations: G started")
	defer w.evHandler("worker: pruneOperations: G completed")

	for {
		select {
		case <-w.pruneTicker.C:
			if !w.isShutdown() {
				dropped := w.state.PruneAltChains(w.pruneThreshold)
				w.evHandler("worker: pruneOperations: dropped[%d]", dropped)
			}
		case <-w.shut:
			w.evHandler("worker: pruneOperations: received shut signal")
			return
		}
	}
}
