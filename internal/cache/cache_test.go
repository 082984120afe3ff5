package cache

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/mechamoby/sentry/internal/verdict"
)

func TestPutGet_RoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	want := verdict.New(verdict.Quarantine, verdict.RiskHigh, "suspicious_extension:.exe")
	want.Path = "/data/inbound/payload.exe"
	want.SHA256 = "abc123"
	want.Size = 512

	if err := s.Put(want.Path, want); err != nil {
		t.Fatal(err)
	}

	got, ok := s.Get(want.Path)
	if !ok {
		t.Fatal("expected cached verdict")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestGet_DifferentPathStringIsAbsent(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	v := verdict.New(verdict.Allow, verdict.RiskLow, "clean_file")
	if err := s.Put("/uploads/report.pdf", v); err != nil {
		t.Fatal(err)
	}

	// Same content, different path string: deliberately absent.
	if _, ok := s.Get("/media/inbound/report.pdf"); ok {
		t.Error("alias path must miss until explicitly saved")
	}

	// Explicit re-save under the alias makes it visible.
	if err := s.Put("/media/inbound/report.pdf", v); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("/media/inbound/report.pdf"); !ok {
		t.Error("alias path must hit after explicit save")
	}
}

func TestPut_OverwritesSameKey(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	first := verdict.New(verdict.Challenge, verdict.RiskMedium, "oversize_file")
	second := verdict.New(verdict.Allow, verdict.RiskLow, "clean_file")

	if err := s.Put("/tmp/f", first); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("/tmp/f", second); err != nil {
		t.Fatal(err)
	}

	got, ok := s.Get("/tmp/f")
	if !ok {
		t.Fatal("expected cached verdict")
	}
	if got.Decision != verdict.Allow {
		t.Errorf("expected last writer to win, got %s", got.Decision)
	}
}

func TestPut_ConcurrentDistinctKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("/tmp/file-%d", i)
			if err := s.Put(key, verdict.New(verdict.Allow, verdict.RiskLow, "clean_file")); err != nil {
				t.Errorf("put %s: %v", key, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 32; i++ {
		if _, ok := s.Get(fmt.Sprintf("/tmp/file-%d", i)); !ok {
			t.Errorf("missing verdict for key %d", i)
		}
	}
}
