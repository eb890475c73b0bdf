// Package runtime wires storage and configuration into a single-node
// flume instance and hands out queue handles.
package runtime
