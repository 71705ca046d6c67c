// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package atio implements the AT-IO byte transport over a reactor.Monitor.
//
// A Transport owns a read pump, which fills a pool.ByteRing and hands new
// bytes to a client callback, and a write pump, which writes queued buffers
// in FIFO order with a per-buffer timeout. When the ring fills up before the
// client drains it, its content is dropped; the drop is logged and counted.
package atio
