package virt

import (
	"errors"
	"testing"
)

var _ Conn = (*LiveConn)(nil)
var _ Conn = (*MockConn)(nil)

func TestMockConnLifecycle(t *testing.T) {
	conn := NewMockConn()

	xml := "<domain type='kvm'><name>acme-web</name></domain>"
	if err := conn.DefineAndStart(xml); err != nil {
		t.Fatalf("DefineAndStart: %v", err)
	}

	if err := conn.Lookup("acme-web"); err != nil {
		t.Fatalf("Lookup after define: %v", err)
	}

	if err := conn.DefineAndStart(xml); err == nil {
		t.Fatal("expected duplicate define to fail")
	}

	guests, err := conn.Guests()
	if err != nil {
		t.Fatalf("Guests: %v", err)
	}
	if len(guests) != 1 || guests[0].Name != "acme-web" {
		t.Fatalf("unexpected inventory: %+v", guests)
	}

	if err := conn.Remove("acme-web"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := conn.Lookup("acme-web"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestMockConnRemoveMissing(t *testing.T) {
	conn := NewMockConn()
	if err := conn.Remove("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDomainNameFromXML(t *testing.T) {
	tests := []struct {
		xml     string
		want    string
		wantErr bool
	}{
		{"<domain><name>t-v</name></domain>", "t-v", false},
		{"<domain></domain>", "", true},
		{"<domain><name>unterminated", "", true},
	}
	for _, tt := range tests {
		got, err := domainNameFromXML(tt.xml)
		if tt.wantErr {
			if err == nil {
				t.Errorf("domainNameFromXML(%q): expected error", tt.xml)
			}
			continue
		}
		if err != nil {
			t.Errorf("domainNameFromXML(%q): %v", tt.xml, err)
			continue
		}
		if got != tt.want {
			t.Errorf("domainNameFromXML(%q) = %q, want %q", tt.xml, got, tt.want)
		}
	}
}
