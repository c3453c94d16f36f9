package blink

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ssargent/blinkdb/pkg/engine"
)

func TestTreeConcurrentInsertSearch(t *testing.T) {
	tree := newTestTree(t, MinOrder)
	var wg sync.WaitGroup
	numGoroutines := 10
	keysPerGoroutine := 50

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < keysPerGoroutine; j++ {
				key := []byte(fmt.Sprintf("key-%d-%04d", id, j))
				if _, _, err := tree.Put(key, key); err != nil {
					t.Errorf("Put(%s): %v", key, err)
				}
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < keysPerGoroutine; j++ {
				key := []byte(fmt.Sprintf("key-%d-%04d", id, j))
				v, err := tree.Get(key)
				if err != nil {
					t.Errorf("Get(%s): %v", key, err)
					continue
				}
				if string(v) != string(key) {
					t.Errorf("Get(%s) = %q, want %q", key, v, key)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestTreeConcurrentInsertWhileScanning(t *testing.T) {
	tree := newTestTree(t, MinOrder)
	const seeded = 200
	for i := 0; i < seeded; i++ {
		key := []byte(fmt.Sprintf("seed-%05d", i))
		tree.Put(key, key)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			key := []byte(fmt.Sprintf("extra-%05d", i))
			if _, _, err := tree.Put(key, key); err != nil {
				t.Errorf("Put(%s): %v", key, err)
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			it, err := tree.Scan([]byte("seed-00000"), true, []byte("seed-99999"), true)
			if err != nil {
				t.Errorf("Scan: %v", err)
				return
			}
			count := 0
			for it.Next() {
				count++
			}
			if it.Err() != nil {
				t.Errorf("iterator error: %v", it.Err())
			}
			if count < seeded {
				t.Errorf("scan observed %d of the %d seeded keys", count, seeded)
			}
		}
	}()

	wg.Wait()
}

func TestTreeConcurrentInsertDelete(t *testing.T) {
	tree := newTestTree(t, MinOrder)
	var wg sync.WaitGroup
	numGoroutines := 8
	keysPerGoroutine := 25

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < keysPerGoroutine; j++ {
				key := []byte(fmt.Sprintf("del-%d-%04d", id, j))
				tree.Put(key, key)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < keysPerGoroutine; j++ {
				key := []byte(fmt.Sprintf("del-%d-%04d", id, j))
				if _, err := tree.Delete(key); err != nil {
					t.Errorf("Delete(%s): %v", key, err)
				}
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < numGoroutines; i++ {
		for j := 0; j < keysPerGoroutine; j++ {
			key := []byte(fmt.Sprintf("del-%d-%04d", i, j))
			if _, err := tree.Get(key); err != ErrKeyNotFound {
				t.Errorf("Get(%s) after delete = %v, want ErrKeyNotFound", key, err)
			}
		}
	}
}

func TestTreeConcurrentDistinctKeysNoLostUpdates(t *testing.T) {
	tree, err := NewTree(engine.NewMemoryEngine(), Options{Order: MinOrder})
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}

	var wg sync.WaitGroup
	numGoroutines := 16
	perGoroutine := 40

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				key := []byte(fmt.Sprintf("g%02d-%03d", id, j))
				val := []byte(fmt.Sprintf("v%02d-%03d", id, j))
				if _, _, err := tree.Put(key, val); err != nil {
					t.Errorf("Put: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	total := 0
	it, err := tree.Scan([]byte("g00-000"), true, []byte("g99-999"), true)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for it.Next() {
		total++
	}
	if it.Err() != nil {
		t.Fatalf("iterator error: %v", it.Err())
	}
	if total != numGoroutines*perGoroutine {
		t.Errorf("scanned %d entries, want %d", total, numGoroutines*perGoroutine)
	}
}
