package artifact

import (
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/agentloop/core"
)

func TestInMemoryArtifactStore_VersionsAppend(t *testing.T) {
	svc := NewInMemoryStore()

	v1, err := svc.Save("s1", "report", []byte("draft"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	v2, err := svc.Save("s1", "report", []byte("final"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if v1 != 1 || v2 != 2 {
		t.Fatalf("expected versions 1 and 2, got %d and %d", v1, v2)
	}

	out, err := svc.Get("s1", "report", 1)
	if err != nil {
		t.Fatalf("get v1: %v", err)
	}
	if string(out) != "draft" {
		t.Fatalf("expected 'draft', got %q", string(out))
	}

	latest, err := svc.Get("s1", "report", core.LatestVersion)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if string(latest) != "final" {
		t.Fatalf("expected 'final', got %q", string(latest))
	}

	versions, err := svc.Versions("s1", "report")
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 2 || versions[0] != 1 || versions[1] != 2 {
		t.Fatalf("expected [1 2], got %v", versions)
	}

	if _, err := svc.Get("s1", "report", 3); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing version, got %v", err)
	}
}

func TestInMemoryArtifactStore_SaveGetIsolation(t *testing.T) {
	svc := NewInMemoryStore()
	data := []byte("hello")
	if _, err := svc.Save("s1", "a1", data); err != nil {
		t.Fatalf("save: %v", err)
	}
	// mutate original slice
	data[0] = 'H'
	out, err := svc.Get("s1", "a1", core.LatestVersion)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(out) != "hello" { // should not reflect mutation
		t.Fatalf("expected 'hello', got %q", string(out))
	}
	// mutate returned slice
	out[0] = 'x'
	out2, _ := svc.Get("s1", "a1", core.LatestVersion)
	if string(out2) != "hello" { // original stored should be unchanged
		t.Fatalf("expected isolation, got %q", string(out2))
	}
}

func TestInMemoryArtifactStore_ListAndDelete(t *testing.T) {
	svc := NewInMemoryStore()
	if _, err := svc.Save("s1", "a1", []byte("1")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Save("s1", "a2", []byte("2")); err != nil {
		t.Fatal(err)
	}
	names, err := svc.List("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d", len(names))
	}
	if err := svc.Delete("s1", "a1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get("s1", "a1", core.LatestVersion); err == nil {
		t.Fatalf("expected error for deleted artifact")
	}
	names, _ = svc.List("s1")
	if len(names) != 1 {
		t.Fatalf("expected 1 name after delete, got %d", len(names))
	}
}

func TestInMemoryArtifactStore_Concurrency(t *testing.T) {
	svc := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("a%d", i%10)
			if _, err := svc.Save("s1", name, []byte("data")); err != nil {
				t.Errorf("save err: %v", err)
			}
			_, _ = svc.List("s1")
		}(i)
	}
	wg.Wait()

	names, err := svc.List("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 10 {
		t.Fatalf("expected 10 artifacts, got %d", len(names))
	}

	versions, err := svc.Versions("s1", "a0")
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 10 {
		t.Fatalf("expected 10 versions, got %d", len(versions))
	}
}
