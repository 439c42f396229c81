package store

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rushteam/feedkit/core"
)

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if _, err := s.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("Get(missing) = %v, want NOT_FOUND", err)
	}

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || !bytes.Equal(got, []byte("v")) {
		t.Errorf("Get = (%s, %v)", got, err)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("Get after delete = %v, want NOT_FOUND", err)
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if err := s.Set(ctx, "ephemeral", []byte("v"), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "ephemeral"); err != nil {
		t.Fatalf("fresh key should exist: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)
	if _, err := s.Get(ctx, "ephemeral"); !core.IsStoreNotFound(err) {
		t.Errorf("expired key = %v, want NOT_FOUND", err)
	}
}

func TestMemoryStore_SetNX(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	fresh, err := s.SetNX(ctx, "lock", []byte{1}, 60)
	if err != nil || !fresh {
		t.Fatalf("first SetNX = (%v, %v), want (true, nil)", fresh, err)
	}
	fresh, err = s.SetNX(ctx, "lock", []byte{1}, 60)
	if err != nil || fresh {
		t.Fatalf("second SetNX = (%v, %v), want (false, nil)", fresh, err)
	}
}

func TestMemoryStore_Batch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if err := s.BatchSet(ctx, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.BatchGet(ctx, []string{"a", "b", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Errorf("BatchGet = %v", got)
	}
}

func TestMemoryStore_SortedSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	for member, score := range map[string]float64{"a": 3, "b": 1, "c": 2} {
		if err := s.ZAdd(ctx, "z", score, member); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("ZRange descending", func(t *testing.T) {
		got, err := s.ZRange(ctx, "z", 0, -1)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"a", "c", "b"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("ZRange = %v, want %v", got, want)
			}
		}
	})

	t.Run("ZRangeByScore", func(t *testing.T) {
		got, err := s.ZRangeByScore(ctx, "z", 2, 3)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0] != "a" || got[1] != "c" {
			t.Errorf("ZRangeByScore = %v", got)
		}
	})

	t.Run("ZIncrBy", func(t *testing.T) {
		score, err := s.ZIncrBy(ctx, "z", 5, "b")
		if err != nil || score != 6 {
			t.Errorf("ZIncrBy = (%v, %v), want (6, nil)", score, err)
		}
	})

	t.Run("ZScore", func(t *testing.T) {
		if score, err := s.ZScore(ctx, "z", "a"); err != nil || score != 3 {
			t.Errorf("ZScore(a) = (%v, %v)", score, err)
		}
		if _, err := s.ZScore(ctx, "z", "nope"); !core.IsStoreNotFound(err) {
			t.Errorf("ZScore(nope) = %v, want NOT_FOUND", err)
		}
	})

	t.Run("ZRemRangeByScore", func(t *testing.T) {
		if err := s.ZRemRangeByScore(ctx, "z", 0, 3); err != nil {
			t.Fatal(err)
		}
		// b 在 ZIncrBy 后 score=6，唯一幸存者
		got, err := s.ZRange(ctx, "z", 0, -1)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0] != "b" {
			t.Errorf("after ZRemRangeByScore = %v, want [b]", got)
		}
	})
}

func TestMemoryStore_Hash(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if n, err := s.HIncrBy(ctx, "h", "likes", 1); err != nil || n != 1 {
		t.Errorf("HIncrBy = (%d, %v), want (1, nil)", n, err)
	}
	if n, err := s.HIncrBy(ctx, "h", "likes", 4); err != nil || n != 5 {
		t.Errorf("HIncrBy = (%d, %v), want (5, nil)", n, err)
	}

	if err := s.HSet(ctx, "h", "note", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if v, err := s.HGet(ctx, "h", "note"); err != nil || string(v) != "x" {
		t.Errorf("HGet = (%s, %v)", v, err)
	}
	if _, err := s.HGet(ctx, "h", "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("HGet(missing) = %v, want NOT_FOUND", err)
	}

	all, err := s.HGetAll(ctx, "h")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || string(all["likes"]) != "5" {
		t.Errorf("HGetAll = %v", all)
	}
}
