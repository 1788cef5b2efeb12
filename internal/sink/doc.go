// Package sink routes dispatched log entries to their destinations.
//
// A sink pairs an output (console, file, memory, redis) with a formatter and
// an optional CEL filter. The manager fans every entry out to all configured
// sinks on the worker pool; a sink whose filter rejects the entry drops it
// silently. Sink types are looked up in a static registry keyed by the
// config "type" field.
package sink
