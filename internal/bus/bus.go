package bus

import (
	"log"
	"sync"

	"github.com/haricheung/catperiod/internal/types"
)

const (
	subscriberBufSize = 256
	tapBufSize        = 1024
)

// Bus is the observable progress bus. Workers publish one message per N;
// the display and the run log consume them. A nil *Bus drops everything.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[types.MessageType][]chan types.Message
	tapCh       chan types.Message
}

// New creates a new Bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[types.MessageType][]chan types.Message),
		tapCh:       make(chan types.Message, tapBufSize),
	}
}

// Publish fans out msg to all subscribers of msg.Type and to the tap channel.
// Non-blocking: if a subscriber's channel is full, the message is dropped with a warning.
// Progress is advisory; the batch result never depends on delivery.
func (b *Bus) Publish(msg types.Message) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := b.subscribers[msg.Type]
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- msg:
		default:
			log.Printf("[BUS] WARNING: subscriber channel full for type=%s from=%s — message dropped", msg.Type, msg.From)
		}
	}

	select {
	case b.tapCh <- msg:
	default:
	}
}

// Subscribe returns a receive-only channel that delivers messages of type t.
// Each call creates a new independent subscriber channel.
func (b *Bus) Subscribe(t types.MessageType) <-chan types.Message {
	ch := make(chan types.Message, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[t] = append(b.subscribers[t], ch)
	b.mu.Unlock()
	return ch
}

// Tap returns the read-only tap channel that sees every published message.
// Only one consumer should call this; calling it multiple times returns the same channel.
func (b *Bus) Tap() <-chan types.Message {
	return b.tapCh
}
