// Package bus implements the in-process publish/subscribe broker that
// connects the module adapters. It is structured into small files by concern:
//
//   - bus.go: Bus type, Publish/Subscribe/Unsubscribe, bounded log reads.
//   - subscription.go: per-subscriber queue and worker goroutine.
//   - errors.go: validation error types and predicates.
//   - metrics.go: Prometheus counters and gauges.
//
// Delivery semantics: Publish validates, appends to the bounded log, and
// enqueues to every subscription present at append time, then returns. Each
// subscription drains its own FIFO on a dedicated goroutine, so deliveries
// are serialized within a subscriber, concurrent across subscribers, and a
// slow or failing subscriber never stalls publishers or its peers. Events
// queued for a subscriber are discarded when it unsubscribes; a callback
// already executing is allowed to finish.
package bus
