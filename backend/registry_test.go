package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/atlas/gpucore"
)

// fakeDevice is a minimal gpucore.Device for registry tests.
type fakeDevice struct {
	gpucore.Device
	name   string
	closed bool
}

func (d *fakeDevice) Close() { d.closed = true }

func fakeFactory(name string) Factory {
	return func(*gpucore.Limits) (gpucore.Device, error) {
		return &fakeDevice{name: name}, nil
	}
}

func failingFactory(err error) Factory {
	return func(*gpucore.Limits) (gpucore.Device, error) {
		return nil, err
	}
}

// isolate clears the registry for one test and restores it afterwards.
func isolate(t *testing.T) {
	t.Helper()
	registryMu.Lock()
	saved := factories
	factories = make(map[string]Factory)
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		factories = saved
		registryMu.Unlock()
	})
}

func TestRegistryRegisterAndOpen(t *testing.T) {
	isolate(t)
	Register("test", fakeFactory("test"))

	dev, err := Open("test", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if dev.(*fakeDevice).name != "test" {
		t.Errorf("opened %q", dev.(*fakeDevice).name)
	}
}

func TestRegistryOpenUnregistered(t *testing.T) {
	isolate(t)
	if _, err := Open("missing", nil); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(missing) err = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRegistryAvailable(t *testing.T) {
	isolate(t)
	Register("b", fakeFactory("b"))
	Register("a", fakeFactory("a"))

	if got := Available(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Available() = %v", got)
	}
}

func TestRegistryUnregister(t *testing.T) {
	isolate(t)
	Register("test", fakeFactory("test"))
	if !IsRegistered("test") {
		t.Fatal("IsRegistered = false after Register")
	}
	Unregister("test")
	if IsRegistered("test") {
		t.Error("IsRegistered = true after Unregister")
	}
}

func TestRegistryDefaultPriority(t *testing.T) {
	isolate(t)
	Register("custom", fakeFactory("custom"))
	Register(Soft, fakeFactory(Soft))
	Register(Native, fakeFactory(Native))

	_, name, err := Default(nil)
	if err != nil {
		t.Fatal(err)
	}
	if name != Native {
		t.Errorf("Default picked %q, want %q", name, Native)
	}
}

func TestRegistryDefaultSkipsFailures(t *testing.T) {
	isolate(t)
	Register(Native, failingFactory(errors.New("no gpu")))
	Register(Soft, fakeFactory(Soft))

	dev, name, err := Default(nil)
	if err != nil {
		t.Fatal(err)
	}
	if name != Soft || dev.(*fakeDevice).name != Soft {
		t.Errorf("Default picked %q, want %q", name, Soft)
	}
}

func TestRegistryDefaultNoneAvailable(t *testing.T) {
	isolate(t)
	if _, _, err := Default(nil); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("empty registry err = %v", err)
	}

	gpuErr := errors.New("no gpu")
	Register(Native, failingFactory(gpuErr))
	_, _, err := Default(nil)
	if !errors.Is(err, ErrBackendNotAvailable) || !errors.Is(err, gpuErr) {
		t.Errorf("all failing err = %v, want both sentinel and cause", err)
	}
}

func TestRelease(t *testing.T) {
	dev := &fakeDevice{}
	Release(dev)
	if !dev.closed {
		t.Error("Release did not close the device")
	}
}
