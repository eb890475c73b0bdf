// Package cli implements the flume subcommands. Commands open the data
// directory in-process through the runtime; there is no server. Pebble
// holds a directory lock, so one flume process owns a data dir at a time.
package cli
