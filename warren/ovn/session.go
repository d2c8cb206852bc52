package ovn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ovn-kubernetes/libovsdb/ovsdb"
)

// DefaultDatabase is the northbound database every transact targets.
const DefaultDatabase = "OVN_Northbound"

// ErrUUIDNotFound is returned when a transact reply does not carry a row
// UUID in the expected position.
var ErrUUIDNotFound = errors.New("uuid could not be parsed from response")

// ErrIncompleteResponse is returned when the server closes the connection
// before a complete JSON document has been received.
var ErrIncompleteResponse = errors.New("incomplete response")

// Request is a single JSON-RPC frame sent to the northbound server.
// params[0] is the database name, followed by the operations.
type Request struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	ID     int           `json:"id"`
}

// Response is the JSON-RPC reply frame.
type Response struct {
	Result json.RawMessage `json:"result"`
	Error  interface{}     `json:"error"`
	ID     int             `json:"id"`
}

// Session issues transact calls against an OVSDB server. Each call opens
// its own TCP connection, writes one newline-terminated JSON-RPC request
// and reads back exactly one JSON document. The session itself is
// stateless and safe for concurrent use.
type Session struct {
	Addr     string
	Database string
	Timeout  time.Duration
}

// NewSession returns a session targeting the northbound server at addr
// (host:port).
func NewSession(addr string) *Session {
	return &Session{
		Addr:     addr,
		Database: DefaultDatabase,
		Timeout:  30 * time.Second,
	}
}

// Transact sends the operations as a single transaction and decodes the
// per-operation results. The id is the JSON-RPC correlation id; each
// connection carries one request, so callers use stable per-operation ids
// which makes captures easy to read.
//
// Replies may arrive split across TCP reads. Decoding is incremental: the
// decoder consumes bytes until one full JSON document is available, fails
// on malformed input, and reports a closed connection mid-document as
// ErrIncompleteResponse.
func (s *Session) Transact(ctx context.Context, id int, ops ...ovsdb.Operation) ([]ovsdb.OperationResult, error) {
	params := make([]interface{}, 0, len(ops)+1)
	params = append(params, s.database())
	for _, op := range ops {
		params = append(params, op)
	}

	payload, err := json.Marshal(Request{Method: "transact", Params: params, ID: id})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	payload = append(payload, '\n')

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial ovsdb %s: %w", s.Addr, err)
	}
	defer conn.Close()

	if deadline, ok := s.deadline(ctx); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set deadline: %w", err)
		}
	}

	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("read response: %w", ErrIncompleteResponse)
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("ovsdb error: %v", resp.Error)
	}

	var results []ovsdb.OperationResult
	if err := json.Unmarshal(resp.Result, &results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return results, nil
}

func (s *Session) database() string {
	if s.Database == "" {
		return DefaultDatabase
	}
	return s.Database
}

func (s *Session) deadline(ctx context.Context) (time.Time, bool) {
	if d, ok := ctx.Deadline(); ok {
		return d, true
	}
	if s.Timeout > 0 {
		return time.Now().Add(s.Timeout), true
	}
	return time.Time{}, false
}

// InsertedUUID returns the UUID of the row created by the first operation
// of a transact reply. Insert results carry it as ["uuid", id].
func InsertedUUID(results []ovsdb.OperationResult) (string, error) {
	if len(results) == 0 || results[0].UUID.GoUUID == "" {
		return "", ErrUUIDNotFound
	}
	return results[0].UUID.GoUUID, nil
}

// SelectedUUID returns the _uuid of the first row returned by the first
// operation of a select reply.
func SelectedUUID(results []ovsdb.OperationResult) (string, error) {
	if len(results) == 0 || len(results[0].Rows) == 0 {
		return "", ErrUUIDNotFound
	}
	id, ok := results[0].Rows[0]["_uuid"].(ovsdb.UUID)
	if !ok || id.GoUUID == "" {
		return "", ErrUUIDNotFound
	}
	return id.GoUUID, nil
}
