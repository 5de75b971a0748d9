package kvstore

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go/jetstream"
)

// ------------------------
// Fake KeyValue
// ------------------------

type FakeKeyValue struct {
	jetstream.KeyValue // Embed to satisfy interface

	mu    sync.Mutex
	data  map[string][]byte
	trace []string

	PutErr error
}

func NewFakeKeyValue() *FakeKeyValue {
	return &FakeKeyValue{
		data:  make(map[string][]byte),
		trace: []string{},
	}
}

func (f *FakeKeyValue) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, "Put")
	if f.PutErr != nil {
		return 0, f.PutErr
	}
	f.data[key] = value
	return uint64(len(f.data)), nil
}

func (f *FakeKeyValue) Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, "Get")
	val, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return &FakeKeyValueEntry{value: val, key: key}, nil
}

func (f *FakeKeyValue) Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, "Delete")
	delete(f.data, key)
	return nil
}

func (f *FakeKeyValue) Keys(ctx context.Context, opts ...jetstream.WatchOpt) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, "Keys")
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil, jetstream.ErrNoKeysFound
	}
	return keys, nil
}

type FakeKeyValueEntry struct {
	jetstream.KeyValueEntry
	value []byte
	key   string
}

func (f *FakeKeyValueEntry) Value() []byte { return f.value }
func (f *FakeKeyValueEntry) Key() string   { return f.key }
