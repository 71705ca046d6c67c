// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the single-threaded epoll Monitor and the Source
// variants it dispatches: plain descriptors, timers, process-death watches
// and fixed-size message streams.
//
// Sources are owned by the code that creates them. A Monitor only holds a
// handle-indexed registry of them and never cleans them on Close.
package reactor
