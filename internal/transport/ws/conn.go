package ws

import (
	"errors"
	"sync"
)

var (
	errConnClosed = errors.New("connection closed")
	errQueueFull  = errors.New("outbound queue full")
)

// conn is the registry side of a WebSocket connection. Messages are queued
// for the writer goroutine; Send never blocks.
type conn struct {
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(buffer int) *conn {
	return &conn{
		out:  make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// Send queues msg. It fails when the queue is full or the connection is closed.
func (c *conn) Send(msg []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.out <- msg:
		return nil
	default:
		return errQueueFull
	}
}

// Close stops the writer. Safe to call more than once.
func (c *conn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}
