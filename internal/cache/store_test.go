package cache

import "testing"

func mkEntry(body string) *Entry {
	return &Entry{Status: 200, Body: []byte(body)}
}

func TestStore_PutGet(t *testing.T) {
	s := NewStore(10)
	k := SimpleKey("GET", "a.example.com", "/x")
	s.Put(k, mkEntry("v"))

	e, ok := s.Get(k)
	if !ok || string(e.Body) != "v" {
		t.Fatalf("get after put: %v %v", e, ok)
	}
}

func TestStore_MissOnAbsent(t *testing.T) {
	s := NewStore(10)
	if _, ok := s.Get(SimpleKey("GET", "a.example.com", "/x")); ok {
		t.Fatalf("expected miss")
	}
}

func TestStore_EvictsLeastRecentlyAccessed(t *testing.T) {
	s := NewStore(2)
	k1 := SimpleKey("GET", "h", "/1")
	k2 := SimpleKey("GET", "h", "/2")
	k3 := SimpleKey("GET", "h", "/3")

	s.Put(k1, mkEntry("1"))
	s.Put(k2, mkEntry("2"))
	// access k1 so it's more recently used than k2
	s.Get(k1)
	// inserting k3 should evict k2, the least-recently-accessed
	s.Put(k3, mkEntry("3"))

	if _, ok := s.Get(k2); ok {
		t.Fatalf("k2 should have been evicted")
	}
	if _, ok := s.Get(k1); !ok {
		t.Fatalf("k1 should still be present")
	}
	if _, ok := s.Get(k3); !ok {
		t.Fatalf("k3 should be present")
	}
}

func TestStore_InvalidateResource_OnlyGetHead(t *testing.T) {
	s := NewStore(10)
	getKey := SimpleKey("GET", "h", "/r")
	// a POST entry would never legitimately be stored, but the invalidation
	// filter is method-scoped on purpose: only GET/HEAD are removed.
	postKey := SimpleKey("POST", "h", "/r")
	s.Put(getKey, mkEntry("g"))
	s.Put(postKey, mkEntry("p"))

	s.InvalidateResource("h", "/r")

	if _, ok := s.Get(getKey); ok {
		t.Fatalf("GET entry should be invalidated")
	}
	if _, ok := s.Get(postKey); !ok {
		t.Fatalf("POST entry should survive a GET/HEAD-scoped invalidation")
	}
}

func TestStore_InvalidateResource_Idempotent(t *testing.T) {
	s := NewStore(10)
	s.InvalidateResource("h", "/nope")
	s.InvalidateResource("h", "/nope")
}

func TestStore_VaryIndex(t *testing.T) {
	s := NewStore(10)
	simple := SimpleKey("GET", "h", "/r")

	if _, ok := s.GetVary(simple); ok {
		t.Fatalf("expected no vary entry yet")
	}
	s.SetVary(simple, "Accept-Language")
	v, ok := s.GetVary(simple)
	if !ok || v != "Accept-Language" {
		t.Fatalf("got %q, %v", v, ok)
	}
	s.DeleteVary(simple)
	if _, ok := s.GetVary(simple); ok {
		t.Fatalf("expected vary entry removed")
	}
}

func TestStore_PurgeResource_RemovesAllMethods(t *testing.T) {
	s := NewStore(10)
	getKey := SimpleKey("GET", "h", "/r")
	headKey := SimpleKey("HEAD", "h", "/r")
	s.Put(getKey, mkEntry("g"))
	s.Put(headKey, mkEntry("h"))
	s.SetVary(getKey, "Accept")

	s.PurgeResource("h", "/r")

	if _, ok := s.Get(getKey); ok {
		t.Fatalf("GET entry should be purged")
	}
	if _, ok := s.Get(headKey); ok {
		t.Fatalf("HEAD entry should be purged")
	}
	if _, ok := s.GetVary(getKey); ok {
		t.Fatalf("vary entry should be purged")
	}
}

func TestStore_PutOverwriteUpdatesFreshness(t *testing.T) {
	s := NewStore(10)
	k := SimpleKey("GET", "h", "/r")
	s.Put(k, mkEntry("v1"))
	s.Put(k, mkEntry("v2"))
	e, ok := s.Get(k)
	if !ok || string(e.Body) != "v2" {
		t.Fatalf("expected overwritten entry, got %v", e)
	}
	if s.Len() != 1 {
		t.Fatalf("expected exactly one entry after overwrite, got %d", s.Len())
	}
}
