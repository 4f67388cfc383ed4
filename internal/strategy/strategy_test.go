package strategy

import (
	"errors"
	"testing"

	"quantbt/internal/domain"
)

// stubStrategy is a minimal Strategy implementation used in registry tests.
type stubStrategy struct {
	name string
}

func (s *stubStrategy) Name() string { return s.name }
func (s *stubStrategy) GenerateSignals(series *domain.PriceSeries) (*domain.SignalFrame, error) {
	return domain.NewSignalFrame(series.Dates), nil
}

func stubFactory(name string) Factory {
	return func(_ domain.Params) (Strategy, error) {
		return &stubStrategy{name: name}, nil
	}
}

func TestRegistryCreate(t *testing.T) {
	r := NewRegistry()
	r.Register("test-strategy", stubFactory("test-strategy"))

	got, err := r.Create("test-strategy", nil)
	if err != nil {
		t.Fatalf("Create returned error for registered strategy: %v", err)
	}
	if got.Name() != "test-strategy" {
		t.Errorf("Create returned strategy with Name() = %q, want %q", got.Name(), "test-strategy")
	}
}

func TestRegistryCreate_Unknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("Invalid Strategy", nil)
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("Create error = %v, want ErrUnknownStrategy", err)
	}
}

func TestRegistryKnown(t *testing.T) {
	r := NewRegistry()
	r.Register("alpha", stubFactory("alpha"))

	if !r.Known("alpha") {
		t.Error("Known returned false for registered strategy")
	}
	if r.Known("beta") {
		t.Error("Known returned true for unregistered strategy")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register("beta", stubFactory("beta"))
	r.Register("alpha", stubFactory("alpha"))

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("List returned %d names, want 2", len(names))
	}
	// List returns sorted names.
	if names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List returned %v, want [alpha beta]", names)
	}
}
