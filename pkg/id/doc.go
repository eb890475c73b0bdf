// Package id provides 128-bit, lexicographically sortable entry
// identifiers encoded as [8 bytes ms_timestamp][8 bytes sequence].
// The embedded timestamp is diagnostic: entry ordering in flume is defined
// by the queue sequence number, never by the ID.
package id
