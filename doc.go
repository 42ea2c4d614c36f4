// Package tillsync provides an offline outbox for kiosk cash-closing records.
//
// Typical flow:
//  1. A caller builds an Entry (target endpoint and JSON body) and enqueues it with Outbox.Enqueue.
//  2. An Engine flushes the outbox when asked (Flush) or when connectivity comes back (AutoSync, Run).
//  3. Items delivered successfully are dropped; failed items stay queued in order and count an attempt.
//     With a retry cap configured, items that exhaust it move to a dead list for the operator.
//
// Storage is pluggable through KV. See the filestore, redisstore, mysql and pgstore packages
// for durable backends, httpsender and amqpsender for delivery, and netstatus for connectivity.
package tillsync
