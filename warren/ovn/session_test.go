package ovn

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ovn-kubernetes/libovsdb/ovsdb"
)

// fakeNB is a scripted northbound stub. Each accepted connection reads one
// newline-terminated request, records it, and plays back the next queued
// response (written in chunks, optionally with a gap between them).
type fakeNB struct {
	t  *testing.T
	ln net.Listener

	mu        sync.Mutex
	gap       time.Duration
	responses [][]string
	requests  []string
}

func newFakeNB(t *testing.T) *fakeNB {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	f := &fakeNB{t: t, ln: ln}
	go f.serve()
	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeNB) addr() string {
	return f.ln.Addr().String()
}

// respond queues the response for the next connection, written as the
// given chunks.
func (f *fakeNB) respond(chunks ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, chunks)
}

func (f *fakeNB) setGap(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gap = d
}

func (f *fakeNB) takeRequests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.requests
	f.requests = nil
	return out
}

func (f *fakeNB) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeNB) handle(conn net.Conn) {
	defer conn.Close()
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, strings.TrimSuffix(line, "\n"))
	var chunks []string
	if len(f.responses) > 0 {
		chunks = f.responses[0]
		f.responses = f.responses[1:]
	}
	gap := f.gap
	f.mu.Unlock()

	for i, chunk := range chunks {
		if i > 0 && gap > 0 {
			time.Sleep(gap)
		}
		if _, err := conn.Write([]byte(chunk)); err != nil {
			return
		}
	}
}

// decodedRequest is the generic JSON view of one recorded request frame.
type decodedRequest struct {
	Method string
	DB     string
	Ops    []map[string]interface{}
	ID     float64
}

func decodeRequest(t *testing.T, raw string) decodedRequest {
	t.Helper()
	var frame map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &frame); err != nil {
		t.Fatalf("request is not valid JSON: %v\n%s", err, raw)
	}
	params, ok := frame["params"].([]interface{})
	if !ok || len(params) == 0 {
		t.Fatalf("request params missing: %s", raw)
	}
	out := decodedRequest{
		Method: frame["method"].(string),
		DB:     params[0].(string),
		ID:     frame["id"].(float64),
	}
	for _, p := range params[1:] {
		op, ok := p.(map[string]interface{})
		if !ok {
			t.Fatalf("operation is not an object: %v", p)
		}
		out.Ops = append(out.Ops, op)
	}
	return out
}

func TestTransact_Framing(t *testing.T) {
	nb := newFakeNB(t)
	nb.respond(`{"result":[{"count":1}],"error":null,"id":42}` + "\n")

	s := NewSession(nb.addr())
	results, err := s.Transact(context.Background(), 42, ovsdb.Operation{
		Op:    ovsdb.OperationDelete,
		Table: "Logical_Switch",
		Where: whereEq("name", "sw0"),
	})
	if err != nil {
		t.Fatalf("Transact failed: %v", err)
	}
	if len(results) != 1 || results[0].Count != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}

	reqs := nb.takeRequests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	req := decodeRequest(t, reqs[0])
	if req.Method != "transact" {
		t.Errorf("method = %q, want transact", req.Method)
	}
	if req.DB != "OVN_Northbound" {
		t.Errorf("database = %q, want OVN_Northbound", req.DB)
	}
	if req.ID != 42 {
		t.Errorf("id = %v, want 42", req.ID)
	}
	if len(req.Ops) != 1 || req.Ops[0]["op"] != "delete" {
		t.Errorf("unexpected ops: %+v", req.Ops)
	}
}

func TestTransact_SplitResponse(t *testing.T) {
	nb := newFakeNB(t)
	nb.setGap(20 * time.Millisecond)
	nb.respond(`{"result":[{"rows":[{"_uuid":["uuid","aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"]`, `}]}],"error":null,"id":3}`)

	s := NewSession(nb.addr())
	results, err := s.Transact(context.Background(), 3, ovsdb.Operation{
		Op:    ovsdb.OperationSelect,
		Table: "Logical_Switch",
		Where: whereEq("name", "sw0"),
	})
	if err != nil {
		t.Fatalf("Transact failed on split response: %v", err)
	}
	id, err := SelectedUUID(results)
	if err != nil {
		t.Fatalf("SelectedUUID failed: %v", err)
	}
	if id != "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee" {
		t.Errorf("uuid = %q", id)
	}
}

func TestTransact_IncompleteResponse(t *testing.T) {
	nb := newFakeNB(t)
	nb.respond(`{"result":[{"count":`)

	s := NewSession(nb.addr())
	_, err := s.Transact(context.Background(), 1)
	if !errors.Is(err, ErrIncompleteResponse) {
		t.Fatalf("expected ErrIncompleteResponse, got %v", err)
	}
}

func TestTransact_EmptyResponse(t *testing.T) {
	nb := newFakeNB(t)
	// No queued response: the stub closes the connection immediately.

	s := NewSession(nb.addr())
	_, err := s.Transact(context.Background(), 1)
	if !errors.Is(err, ErrIncompleteResponse) {
		t.Fatalf("expected ErrIncompleteResponse, got %v", err)
	}
}

func TestTransact_MalformedResponse(t *testing.T) {
	nb := newFakeNB(t)
	nb.respond(`{"result":[}]`)

	s := NewSession(nb.addr())
	_, err := s.Transact(context.Background(), 1)
	if err == nil {
		t.Fatal("expected a decode error")
	}
	if errors.Is(err, ErrIncompleteResponse) {
		t.Fatalf("malformed input reported as incomplete: %v", err)
	}
}

func TestTransact_RPCError(t *testing.T) {
	nb := newFakeNB(t)
	nb.respond(`{"result":null,"error":"unknown database","id":1}`)

	s := NewSession(nb.addr())
	_, err := s.Transact(context.Background(), 1)
	if err == nil || !strings.Contains(err.Error(), "unknown database") {
		t.Fatalf("expected rpc error, got %v", err)
	}
}

func TestTransact_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	s := NewSession(addr)
	if _, err := s.Transact(context.Background(), 1); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestTransact_ContextCancelled(t *testing.T) {
	nb := newFakeNB(t)
	// No response queued and the stub keeps the connection open only until
	// the request arrives, so rely on the context being dead before dial.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSession(nb.addr())
	if _, err := s.Transact(ctx, 1); err == nil {
		t.Fatal("expected error with cancelled context")
	}
}

func TestTransact_CustomDatabase(t *testing.T) {
	nb := newFakeNB(t)
	nb.respond(`{"result":[],"error":null,"id":7}`)

	s := NewSession(nb.addr())
	s.Database = "OVN_Southbound"
	if _, err := s.Transact(context.Background(), 7); err != nil {
		t.Fatalf("Transact failed: %v", err)
	}
	req := decodeRequest(t, nb.takeRequests()[0])
	if req.DB != "OVN_Southbound" {
		t.Errorf("database = %q, want OVN_Southbound", req.DB)
	}
}

func uuidResults(t *testing.T, raw string) []ovsdb.OperationResult {
	t.Helper()
	var results []ovsdb.OperationResult
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		t.Fatalf("unmarshal results: %v", err)
	}
	return results
}

func TestInsertedUUID(t *testing.T) {
	results := uuidResults(t, `[{"uuid":["uuid","11111111-2222-3333-4444-555555555555"]},{}]`)
	id, err := InsertedUUID(results)
	if err != nil {
		t.Fatalf("InsertedUUID failed: %v", err)
	}
	if id != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("uuid = %q", id)
	}

	for name, raw := range map[string]string{
		"empty results": `[]`,
		"no uuid":       `[{"count":1}]`,
	} {
		if _, err := InsertedUUID(uuidResults(t, raw)); !errors.Is(err, ErrUUIDNotFound) {
			t.Errorf("%s: expected ErrUUIDNotFound, got %v", name, err)
		}
	}
}

func TestSelectedUUID(t *testing.T) {
	results := uuidResults(t, `[{"rows":[{"_uuid":["uuid","11111111-2222-3333-4444-555555555555"],"name":"sw0"}]}]`)
	id, err := SelectedUUID(results)
	if err != nil {
		t.Fatalf("SelectedUUID failed: %v", err)
	}
	if id != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("uuid = %q", id)
	}

	for name, raw := range map[string]string{
		"empty results": `[]`,
		"no rows":       `[{"rows":[]}]`,
		"no _uuid":      `[{"rows":[{"name":"sw0"}]}]`,
	} {
		if _, err := SelectedUUID(uuidResults(t, raw)); !errors.Is(err, ErrUUIDNotFound) {
			t.Errorf("%s: expected ErrUUIDNotFound, got %v", name, err)
		}
	}
}
