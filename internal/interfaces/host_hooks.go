// File: internal/interfaces/host_hooks.go
package interfaces

// LogFunc delivers a log line to the host. The host is responsible for any
// thread marshaling it needs; the engine only promises to call it from the
// goroutine running the scan.
type LogFunc func(message string)

// ProgressFunc reports scan progress as a percentage in [0, 100]. Invoked
// at most once per scanned chunk.
type ProgressFunc func(percent int)

// CancelFunc is polled at the top of each outer chunk iteration. Returning
// true stops the scan between chunks.
type CancelFunc func() bool
