// Package watch provides change notification for committed writes.
//
// A client registers interest in one value of a table's primary key, or one value of
// one of its secondary keys, and receives an Event on a buffered channel for every
// committed insert, update or delete of a matching record.
//
// The engine is made of a Registry of active watchers, a Matcher that matches the
// change records of one committed transaction against the registry, and a Dispatcher
// that delivers matched events without ever blocking the committing writer.
//
// # Delivery policy
//
// Every watcher channel is bounded (see WithChannelCapacity, DefaultChannelCapacity).
// When a channel is full the event for that watcher is dropped and counted; there is
// no retry. Watchers are live feeds, not logs. Events of one watcher are delivered in
// commit order.
//
// # Lifecycle
//
// A watcher lives until Watch.Unwatch is called for its id, or until its Receiver is
// closed. In the latter case the registry entry is purged by the next committed
// transaction touching the watcher's table. Dropping every reference to a Receiver
// does not release its watcher.
package watch
