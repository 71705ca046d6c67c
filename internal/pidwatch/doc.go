// Package pidwatch is the process-death notification primitive behind
// reactor.ProcessWatchSource: create a watcher, point it at a pid, poll its
// descriptor, then Wait for the exit status.
package pidwatch
