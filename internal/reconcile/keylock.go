package reconcile

import (
	"strings"
	"sync"

	"github.com/JonMunkholm/royalty/internal/catalog"
)

// KeyLocker hands out one mutex per string key. Entries are reference counted
// and removed when the last holder unlocks, so the map only ever holds keys
// that are in use.
type KeyLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyLocker returns an empty locker.
func NewKeyLocker() *KeyLocker {
	return &KeyLocker{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free and returns the matching unlock.
func (l *KeyLocker) Lock(key string) (unlock func()) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()

	return func() {
		kl.mu.Unlock()

		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// held reports how many keys currently have holders or waiters.
func (l *KeyLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// lockName names one identity of an entity within tenant: by is "id" or
// "key". An entity has two names once it is stored, which is why writers lock
// both, key first.
func lockName(tenant string, k catalog.Kind, by, v string) string {
	var b strings.Builder
	b.WriteString(tenant)
	b.WriteByte('/')
	b.WriteString(string(k))
	b.WriteByte('/')
	b.WriteString(by)
	b.WriteByte('/')
	b.WriteString(v)
	return b.String()
}
