package intake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chi-grants/grantflow/internal/model"
	"github.com/chi-grants/grantflow/internal/service"
)

// fakeLedger is an in-memory Ledger for watcher tests.
type fakeLedger struct {
	mu   sync.Mutex
	recs map[string]*model.DocumentRecord
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{recs: make(map[string]*model.DocumentRecord)}
}

func (f *fakeLedger) Register(ctx context.Context, rec *model.DocumentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.recs[rec.ID]; exists {
		return fmt.Errorf("duplicate document: %s", rec.ID)
	}
	f.recs[rec.ID] = rec.Clone()
	return nil
}

func (f *fakeLedger) Transition(ctx context.Context, id string, to model.State, detail string) error {
	return nil
}

func (f *fakeLedger) TransitionWithMove(ctx context.Context, id string, to model.State, detail, destDir string) error {
	return nil
}

func (f *fakeLedger) Get(ctx context.Context, id string) (*model.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	return rec.Clone(), nil
}

func (f *fakeLedger) List(ctx context.Context, state model.State) ([]*model.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.DocumentRecord
	for _, rec := range f.recs {
		if state == "" || rec.State == state {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (f *fakeLedger) Summary(ctx context.Context) (map[model.State]int, error) {
	return nil, nil
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

func (f *fakeLedger) storedNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, rec := range f.recs {
		names = append(names, rec.StoredName)
	}
	return names
}

var _ service.Ledger = (*fakeLedger)(nil)

func startWatcher(t *testing.T, store *Store, ledger service.Ledger) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w := NewWatcher(store, ledger)
	w.settle = 50 * time.Millisecond
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give the watch a moment to attach before tests drop files.
	time.Sleep(200 * time.Millisecond)
}

func TestWatcherRegistersDroppedFile(t *testing.T) {
	store := NewStore(t.TempDir(), 0)
	require.NoError(t, store.EnsureDirs())
	ledger := newFakeLedger()
	startWatcher(t, store, ledger)

	require.NoError(t, os.WriteFile(filepath.Join(store.PendingDir(), "dropped.txt"), []byte("grant text"), 0o600))

	require.Eventually(t, func() bool { return ledger.count() == 1 },
		5*time.Second, 25*time.Millisecond, "dropped file should register")

	names := ledger.storedNames()
	require.Len(t, names, 1)
	assert.Regexp(t, `^\d{8}_\d{6}_dropped\.txt$`, names[0])

	// The staging rename generates its own watch event; it must not
	// produce a second record.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, ledger.count())
}

func TestWatcherSkipsUnsupportedAndDotfiles(t *testing.T) {
	store := NewStore(t.TempDir(), 0)
	require.NoError(t, store.EnsureDirs())
	ledger := newFakeLedger()
	startWatcher(t, store, ledger)

	require.NoError(t, os.WriteFile(filepath.Join(store.PendingDir(), "notes.rtf"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(store.PendingDir(), ".hidden.pdf"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(store.PendingDir(), "real.md"), []byte("# Grant"), 0o600))

	require.Eventually(t, func() bool { return ledger.count() == 1 },
		5*time.Second, 25*time.Millisecond)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, ledger.count())
	assert.Regexp(t, `real\.md$`, ledger.storedNames()[0])
}

func TestWatcherStagesExistingFiles(t *testing.T) {
	store := NewStore(t.TempDir(), 0)
	require.NoError(t, store.EnsureDirs())
	ledger := newFakeLedger()

	// Present before the watcher starts.
	require.NoError(t, os.WriteFile(filepath.Join(store.PendingDir(), "backlog.txt"), []byte("grant"), 0o600))

	startWatcher(t, store, ledger)

	require.Eventually(t, func() bool { return ledger.count() == 1 },
		5*time.Second, 25*time.Millisecond, "files already pending should register at startup")
}
