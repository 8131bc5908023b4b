package nn

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrActivationExists   = errors.New("activation already registered")
	ErrActivationNotFound = errors.New("activation not found")
)

// activations maps the names stored in snapshots and configs to their
// implementation. Built-ins are registered at init; callers may add more.
var activations = struct {
	sync.RWMutex
	byName map[string]Activation
}{
	byName: make(map[string]Activation),
}

func init() {
	registerBuiltInActivations()
}

func registerBuiltInActivations() {
	MustRegisterActivation(ActivationIdentity, Identity{})
	MustRegisterActivation(ActivationSigmoid, Sigmoid{})
	MustRegisterActivation(ActivationTanh, TanH{})
	MustRegisterActivation(ActivationThreshold, Threshold{Level: defaultThreshold})
	MustRegisterActivation(ActivationSoftmax, Softmax{})
}

// RegisterActivation makes fn available under name to Build, the
// With*Activation options and snapshot loading. Names are never replaced.
func RegisterActivation(name string, fn Activation) error {
	if name == "" {
		return errors.New("activation name is required")
	}
	if fn == nil {
		return fmt.Errorf("activation %s: function is required", name)
	}

	activations.Lock()
	defer activations.Unlock()
	if _, taken := activations.byName[name]; taken {
		return fmt.Errorf("%w: %s", ErrActivationExists, name)
	}
	activations.byName[name] = fn
	return nil
}

func MustRegisterActivation(name string, fn Activation) {
	if err := RegisterActivation(name, fn); err != nil {
		panic(err)
	}
}

func GetActivation(name string) (Activation, error) {
	activations.RLock()
	fn, ok := activations.byName[name]
	activations.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActivationNotFound, name)
	}
	return fn, nil
}

// ListActivations returns every registered name in sorted order.
func ListActivations() []string {
	activations.RLock()
	names := make([]string, 0, len(activations.byName))
	for name := range activations.byName {
		names = append(names, name)
	}
	activations.RUnlock()

	sort.Strings(names)
	return names
}

func resetActivationRegistryForTests() {
	activations.Lock()
	activations.byName = make(map[string]Activation)
	activations.Unlock()
	registerBuiltInActivations()
}
