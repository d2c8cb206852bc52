package virt

import (
	"fmt"
	"strings"
	"sync"
)

// MockConn is an in-memory Conn for tests. Domains are keyed by the name
// parsed out of the defined XML.
type MockConn struct {
	mu sync.Mutex

	domains map[string]*Guest

	// DefineErr, when set, fails the next DefineAndStart.
	DefineErr error
}

func NewMockConn() *MockConn {
	return &MockConn{domains: make(map[string]*Guest)}
}

// DefineAndStart records the domain under the name found in the XML and
// marks it running.
func (m *MockConn) DefineAndStart(xml string) error {
	if m.DefineErr != nil {
		return m.DefineErr
	}

	name, err := domainNameFromXML(xml)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.domains[name]; exists {
		return fmt.Errorf("domain %q already defined", name)
	}
	m.domains[name] = &Guest{Name: name, StateCode: 1}
	return nil
}

func (m *MockConn) Lookup(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.domains[name]; !exists {
		return fmt.Errorf("domain %q lookup: %w", name, ErrNotFound)
	}
	return nil
}

func (m *MockConn) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.domains[name]; !exists {
		return fmt.Errorf("domain %q lookup: %w", name, ErrNotFound)
	}
	delete(m.domains, name)
	return nil
}

func (m *MockConn) Guests() ([]Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	guests := make([]Guest, 0, len(m.domains))
	for _, g := range m.domains {
		guests = append(guests, *g)
	}
	return guests, nil
}

// SetGuest seeds or replaces a guest record for inventory tests.
func (m *MockConn) SetGuest(g Guest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domains[g.Name] = &g
}

// domainNameFromXML pulls the <name> element out of a domain document.
// The mock only needs the name, not a full XML parse.
func domainNameFromXML(xml string) (string, error) {
	start := strings.Index(xml, "<name>")
	if start < 0 {
		return "", fmt.Errorf("domain xml has no name element")
	}
	start += len("<name>")
	end := strings.Index(xml[start:], "</name>")
	if end < 0 {
		return "", fmt.Errorf("domain xml has unterminated name element")
	}
	return xml[start : start+end], nil
}
