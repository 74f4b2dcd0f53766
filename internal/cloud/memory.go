package cloud

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/stackrig-io/stackrig/internal/resource"
)

// Memory is an in-memory ControlPlaneClient. It enforces key uniqueness
// per kind the way a real control plane does, and lets tests pre-seed
// resources, script failures, and delay availability.
type Memory struct {
	mu  sync.Mutex
	seq int

	objects map[objectKey]*memObject

	createErr map[objectKey]error
	findErr   map[objectKey]error
	tagErr    map[objectKey]error

	// availability script, keyed by provider ID
	pendingProbes map[string]int
	neverReady    map[string]bool

	createCalls map[objectKey]int
	findCalls   map[objectKey]int
	checkCalls  map[string]int
}

type objectKey struct {
	Kind resource.Kind
	Key  string
}

type memObject struct {
	id    string
	props map[string]any
	tags  map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		objects:       map[objectKey]*memObject{},
		createErr:     map[objectKey]error{},
		findErr:       map[objectKey]error{},
		tagErr:        map[objectKey]error{},
		pendingProbes: map[string]int{},
		neverReady:    map[string]bool{},
		createCalls:   map[objectKey]int{},
		findCalls:     map[objectKey]int{},
		checkCalls:    map[string]int{},
	}
}

func (m *Memory) Create(ctx context.Context, kind resource.Kind, key string, props map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok := objectKey{Kind: kind, Key: key}
	m.createCalls[ok]++
	if err := m.createErr[ok]; err != nil {
		return "", err
	}
	if _, exists := m.objects[ok]; exists {
		return "", NewError(resource.DuplicateExists, "AlreadyExists",
			fmt.Sprintf("%s %q already exists", kind, key))
	}

	copied := make(map[string]any, len(props))
	for k, v := range props {
		copied[k] = v
	}
	m.seq++
	obj := &memObject{
		id:    fmt.Sprintf("mem-%s-%04d", strings.ToLower(string(kind)), m.seq),
		props: copied,
		tags:  map[string]string{},
	}
	m.objects[ok] = obj
	return obj.id, nil
}

func (m *Memory) Find(ctx context.Context, kind resource.Kind, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok := objectKey{Kind: kind, Key: key}
	m.findCalls[ok]++
	if err := m.findErr[ok]; err != nil {
		return "", err
	}
	obj, exists := m.objects[ok]
	if !exists {
		return "", Errorf(resource.NotFound, "%s %q not found", kind, key)
	}
	return obj.id, nil
}

func (m *Memory) Tag(ctx context.Context, kind resource.Kind, providerID string, tags map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ok, obj := range m.objects {
		if ok.Kind != kind || obj.id != providerID {
			continue
		}
		if err := m.tagErr[ok]; err != nil {
			return err
		}
		for k, v := range tags {
			obj.tags[k] = v
		}
		return nil
	}
	return Errorf(resource.NotFound, "%s %q not found", kind, providerID)
}

func (m *Memory) CheckAvailable(ctx context.Context, kind resource.Kind, providerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkCalls[providerID]++
	if m.neverReady[providerID] {
		return false, nil
	}
	if n := m.pendingProbes[providerID]; n > 0 {
		m.pendingProbes[providerID] = n - 1
		return false, nil
	}
	for _, obj := range m.objects {
		if obj.id == providerID {
			return true, nil
		}
	}
	return false, Errorf(resource.NotFound, "%s %q not found", kind, providerID)
}

// Seed inserts an already existing resource and returns its provider ID.
func (m *Memory) Seed(kind resource.Kind, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	obj := &memObject{
		id:    fmt.Sprintf("mem-%s-%04d", strings.ToLower(string(kind)), m.seq),
		props: map[string]any{},
		tags:  map[string]string{},
	}
	m.objects[objectKey{Kind: kind, Key: key}] = obj
	return obj.id
}

// FailCreate scripts the error returned by Create for the given resource.
func (m *Memory) FailCreate(kind resource.Kind, key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErr[objectKey{Kind: kind, Key: key}] = err
}

// FailFind scripts the error returned by Find for the given resource.
func (m *Memory) FailFind(kind resource.Kind, key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findErr[objectKey{Kind: kind, Key: key}] = err
}

// FailTag scripts the error returned by Tag for the given resource.
func (m *Memory) FailTag(kind resource.Kind, key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tagErr[objectKey{Kind: kind, Key: key}] = err
}

// SetAvailableAfter makes the first n availability probes for providerID
// report unavailable.
func (m *Memory) SetAvailableAfter(providerID string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingProbes[providerID] = n
}

// SetNeverAvailable makes every availability probe for providerID report
// unavailable.
func (m *Memory) SetNeverAvailable(providerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.neverReady[providerID] = true
}

// CreateCalls returns how many times Create was invoked for the resource.
func (m *Memory) CreateCalls(kind resource.Kind, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls[objectKey{Kind: kind, Key: key}]
}

// FindCalls returns how many times Find was invoked for the resource.
func (m *Memory) FindCalls(kind resource.Kind, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findCalls[objectKey{Kind: kind, Key: key}]
}

// CheckCalls returns how many availability probes providerID received.
func (m *Memory) CheckCalls(providerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkCalls[providerID]
}

// Props returns the properties recorded when the resource was created.
func (m *Memory) Props(kind resource.Kind, key string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[objectKey{Kind: kind, Key: key}]
	if !ok {
		return nil
	}
	return obj.props
}

// TagsOf returns the tags accumulated on the resource.
func (m *Memory) TagsOf(kind resource.Kind, key string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[objectKey{Kind: kind, Key: key}]
	if !ok {
		return nil
	}
	return obj.tags
}
