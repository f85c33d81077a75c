package local

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/information-sharing-networks/credential-ledger/internal/ledger/contract"
)

var errReadOnly = errors.New("state is read-only outside a write transaction")

// MemoryBackend keeps the state and transaction log in memory. Writes are serialised by a mutex.
type MemoryBackend struct {
	mu     sync.RWMutex
	state  map[string][]byte
	log    []Transaction
	nonces map[string]uint64
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		state:  make(map[string][]byte),
		nonces: make(map[string]uint64),
	}
}

func (m *MemoryBackend) View(ctx context.Context, fn func(state contract.State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(&memoryState{committed: m.state})
}

func (m *MemoryBackend) Update(ctx context.Context, fn func(state contract.State, log TxLog) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// changes are staged and only applied when fn succeeds
	staged := &memoryState{committed: m.state, pending: make(map[string][]byte)}
	log := &memoryTxLog{backend: m}

	if err := fn(staged, log); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for k, v := range staged.pending {
		m.state[k] = v
	}
	for _, tx := range log.appended {
		m.log = append(m.log, tx)
		m.nonces[tx.Signer] = tx.Nonce
	}
	return nil
}

// Transactions returns a copy of the transaction log.
func (m *MemoryBackend) Transactions() []Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Transaction, len(m.log))
	copy(out, m.log)
	return out
}

func (m *MemoryBackend) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryBackend) Close() error { return nil }

type memoryState struct {
	committed map[string][]byte
	pending   map[string][]byte // nil for read-only views
}

func (s *memoryState) GetState(key string) ([]byte, error) {
	if v, ok := s.pending[key]; ok {
		return v, nil
	}
	return s.committed[key], nil
}

func (s *memoryState) PutState(key string, value []byte) error {
	if s.pending == nil {
		return errReadOnly
	}
	s.pending[key] = append([]byte(nil), value...)
	return nil
}

func (s *memoryState) GetStateByPrefix(prefix string) ([][]byte, error) {
	seen := make(map[string]struct{})
	var keys []string
	for _, m := range []map[string][]byte{s.pending, s.committed} {
		for k := range m {
			if _, dup := seen[k]; dup || !strings.HasPrefix(k, prefix) {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	values := make([][]byte, 0, len(keys))
	for _, k := range keys {
		v, _ := s.GetState(k)
		values = append(values, v)
	}
	return values, nil
}

type memoryTxLog struct {
	backend  *MemoryBackend
	appended []Transaction
}

func (l *memoryTxLog) NextNonce(signer string) (uint64, error) {
	for i := len(l.appended) - 1; i >= 0; i-- {
		if l.appended[i].Signer == signer {
			return l.appended[i].Nonce + 1, nil
		}
	}
	return l.backend.nonces[signer] + 1, nil
}

func (l *memoryTxLog) Append(tx Transaction) error {
	l.appended = append(l.appended, tx)
	return nil
}
