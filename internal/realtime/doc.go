// Package realtime delivers notifications to live client connections.
//
// A Gate admits authenticated connections into the per-process Registry.
// Every instance publishes notification events to one shared broker channel
// through its Bridge and consumes the same channel, so an event produced on any
// instance reaches the Dispatcher of the instance holding the recipient's
// connections. Locally produced events take the same broker round trip.
package realtime
