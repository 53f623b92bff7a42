package anonymize

import (
	"strings"
	"sync"
	"testing"
)

func TestAnonymizeDeterministic(t *testing.T) {
	a := NewWithSalt("fixed-salt")

	first := a.Anonymize("AirPods Pro")
	second := a.Anonymize("AirPods Pro")
	if first != second {
		t.Errorf("same name produced different tokens: %q vs %q", first, second)
	}

	// A fresh instance with the same salt is a pure function of (salt, name).
	b := NewWithSalt("fixed-salt")
	if got := b.Anonymize("AirPods Pro"); got != first {
		t.Errorf("same salt and name across instances: %q vs %q", got, first)
	}
}

func TestAnonymizeDistinctNames(t *testing.T) {
	a := NewWithSalt("fixed-salt")

	one := a.Anonymize("Keyboard")
	two := a.Anonymize("Mouse")
	if one == two {
		t.Errorf("distinct names collided: %q", one)
	}
}

func TestAnonymizeDifferentSalts(t *testing.T) {
	a := NewWithSalt("salt-a")
	b := NewWithSalt("salt-b")

	if a.Anonymize("Keyboard") == b.Anonymize("Keyboard") {
		t.Error("different salts produced the same token; cross-session correlation possible")
	}
}

func TestAnonymizeEmptyName(t *testing.T) {
	a := NewWithSalt("any-salt")
	if got := a.Anonymize(""); got != UnknownToken {
		t.Errorf("Anonymize(\"\") = %q, want %q", got, UnknownToken)
	}

	b := NewWithSalt("other-salt")
	if got := b.Anonymize(""); got != UnknownToken {
		t.Errorf("empty name must be salt-independent, got %q", got)
	}
}

func TestTokenShape(t *testing.T) {
	a := NewWithSalt("fixed-salt")
	token := a.Anonymize("Some Device")

	if !strings.HasPrefix(token, "Device_") {
		t.Errorf("token %q missing Device_ prefix", token)
	}
	if len(token) != len("Device_")+6 {
		t.Errorf("token %q has wrong width", token)
	}
}

func TestAnonymizeConcurrent(t *testing.T) {
	a := NewWithSalt("fixed-salt")
	want := a.Anonymize("Shared Device")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := a.Anonymize("Shared Device"); got != want {
					t.Errorf("concurrent Anonymize returned %q, want %q", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestNewGeneratesRandomSalt(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if a.Anonymize("Keyboard") == b.Anonymize("Keyboard") {
		t.Error("two fresh anonymizers produced the same token; salt not random")
	}
}
