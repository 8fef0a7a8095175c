package watch

// Dispatcher delivers matched events to watcher channels. It never blocks.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch sends every match to its watcher in order. A watcher removed since
// matching is skipped, a full channel drops the event and a released receiver
// causes the watcher to be purged.
func (d *Dispatcher) Dispatch(matches []Match) {
	logger := d.registry.logger
	metrics := d.registry.metrics

	for _, match := range matches {
		entry, ok := d.registry.Lookup(match.ID)
		if !ok {
			continue
		}

		switch entry.send(match.Event.Clone()) {
		case sendDelivered:
			metrics.EventsDelivered.Inc()
		case sendFull:
			metrics.EventsDropped.Inc()
			logger.Debug().
				Uint64("watcher_id", uint64(match.ID)).
				Int64("revision", match.Event.Revision).
				Stringer("op", match.Event.Op).
				Msg("watcher channel is full, event dropped")
		case sendClosed:
			d.registry.RemoveDead(match.ID)
		}
	}
}

// Purge removes the watchers whose receivers were released.
func (d *Dispatcher) Purge(dead []WatcherID) {
	for _, id := range dead {
		d.registry.RemoveDead(id)
	}
}
