package store

import (
	"strings"
	"sync"
)

// subscribers is a registry of prefix subscriptions. The zero value is
// ready to use.
type subscribers struct {
	mu   sync.Mutex
	subs []subscription
	next int
}

type subscription struct {
	id     int
	prefix string
	fn     func(key string)
}

func (r *subscribers) add(prefix string, fn func(key string)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.subs = append(r.subs, subscription{id: id, prefix: prefix, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, sub := range r.subs {
				if sub.id == id {
					r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// notify calls matching subscribers once per key, keys in order and
// subscribers in registration order. The registry is snapshotted first so
// callbacks may subscribe or cancel.
func (r *subscribers) notify(keys []string) {
	if len(keys) == 0 {
		return
	}
	r.mu.Lock()
	subs := append([]subscription(nil), r.subs...)
	r.mu.Unlock()

	for _, key := range keys {
		for _, sub := range subs {
			if strings.HasPrefix(key, sub.prefix) {
				sub.fn(key)
			}
		}
	}
}
