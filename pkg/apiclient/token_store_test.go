package apiclient

import (
	"os"
	"path/filepath"
	"testing"

	"llm-builder-console/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")

	store, err := NewFileTokenStore(path)
	if err != nil {
		t.Fatalf("NewFileTokenStore: %v", err)
	}
	if _, ok := store.Get(); ok {
		t.Fatal("fresh store should report no pair")
	}

	pair := entity.TokenPair{Access: "acc-1", Refresh: "ref-1"}
	if err := store.Set(pair); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A second store against the same file sees the persisted pair.
	reopened, err := NewFileTokenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := reopened.Get()
	assert.True(t, ok)
	assert.Equal(t, pair, got)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileTokenStoreSetReplacesPair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store, err := NewFileTokenStore(path)
	if err != nil {
		t.Fatalf("NewFileTokenStore: %v", err)
	}

	_ = store.Set(entity.TokenPair{Access: "old", Refresh: "old-r"})
	_ = store.Set(entity.TokenPair{Access: "new", Refresh: "new-r"})

	got, ok := store.Get()
	assert.True(t, ok)
	assert.Equal(t, "new", got.Access)
	assert.Equal(t, "new-r", got.Refresh)
}

func TestFileTokenStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store, err := NewFileTokenStore(path)
	if err != nil {
		t.Fatalf("NewFileTokenStore: %v", err)
	}
	_ = store.Set(entity.TokenPair{Access: "a", Refresh: "r"})

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := store.Get(); ok {
		t.Error("Get should report no pair after Clear")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("token file should be gone, stat err = %v", err)
	}

	// Clearing an already-clear store is fine.
	assert.NoError(t, store.Clear())
}

func TestFileTokenStoreCorruptFileMeansLoggedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	store, err := NewFileTokenStore(path)
	if err != nil {
		t.Fatalf("NewFileTokenStore should tolerate a corrupt file, got %v", err)
	}
	if _, ok := store.Get(); ok {
		t.Error("corrupt file should read as logged out")
	}
}
