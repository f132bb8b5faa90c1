// SPDX-License-Identifier: Apache-2.0

// Package session owns the P4Runtime session lifecycle for one device:
// connect, mastership arbitration, pipeline config push, table writes and
// reads, teardown. A Session is an explicit value; nothing here is
// package-global, so multiple devices and fake transports both work.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/genproto/googleapis/rpc/code"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	p4config "github.com/p4lang/p4runtime/go/p4/config/v1"
	p4_v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

// DefaultTimeout bounds a single device response, matching the BMv2
// response-time budget.
const DefaultTimeout = 15 * time.Second

// Status is the mastership state of a session.
type Status int32

const (
	Unconnected Status = iota
	Connected
	NotMaster
	Master
	// Lost means the device revoked mastership after we held it. Terminal
	// for this session's write path until Arbitrate is called again.
	Lost
)

func (s Status) String() string {
	switch s {
	case Unconnected:
		return "Unconnected"
	case Connected:
		return "Connected"
	case NotMaster:
		return "NotMaster"
	case Master:
		return "Master"
	case Lost:
		return "Lost"
	}
	return "Unknown"
}

// Op selects the write mutation type.
type Op int

const (
	OpInsert Op = iota
	OpModify
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

func (o Op) updateType() p4_v1.Update_Type {
	switch o {
	case OpModify:
		return p4_v1.Update_MODIFY
	case OpDelete:
		return p4_v1.Update_DELETE
	default:
		return p4_v1.Update_INSERT
	}
}

// Session is one controller's relationship with one device. Exclusively
// owned by its creator; wrap external synchronization around it before
// sharing across goroutines.
type Session struct {
	mu       sync.Mutex
	conn     *grpc.ClientConn
	client   p4_v1.P4RuntimeClient
	stream   p4_v1.P4Runtime_StreamChannelClient
	deviceID uint64
	clientID string

	election    uint64
	electionID  p4_v1.Uint128
	status      Status
	pipelineSet bool
	closed      bool
}

// Connect dials the device and probes its P4Runtime capabilities. The
// attempt is bounded by the context deadline, or DefaultTimeout when the
// caller sets none. No retries: the caller owns retry policy.
func Connect(ctx context.Context, addr string, deviceID uint64, opts ...grpc.DialOption) (*Session, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	conn, err := grpc.DialContext(ctx, addr, append(opts, grpc.WithBlock())...)
	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}

	c := p4_v1.NewP4RuntimeClient(conn)
	resp, err := c.Capabilities(ctx, &p4_v1.CapabilitiesRequest{})
	if err != nil {
		_ = conn.Close()
		return nil, &ConnectError{Addr: addr, Err: err}
	}
	log.Infof("P4Runtime server version is %s", resp.P4RuntimeApiVersion)

	s := FromClient(c, deviceID)
	s.conn = conn
	return s, nil
}

// FromClient builds a session over an existing P4Runtime client. Used for
// fake transports; Connect is the production path.
func FromClient(c p4_v1.P4RuntimeClient, deviceID uint64) *Session {
	return &Session{
		client:   c,
		deviceID: deviceID,
		clientID: uuid.NewString(),
		status:   Connected,
	}
}

func (s *Session) DeviceID() uint64 { return s.deviceID }

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// Arbitrate sends a mastership election request with a fresh, higher
// election ID and blocks until the device answers. On success the session
// is Master; otherwise it stays NotMaster and the returned error says so.
func (s *Session) Arbitrate(ctx context.Context) error {
	s.mu.Lock()
	s.election++
	s.electionID = p4_v1.Uint128{High: 0, Low: s.election}
	electionID := s.electionID
	s.mu.Unlock()

	if s.stream == nil {
		stream, err := s.client.StreamChannel(ctx)
		if err != nil {
			return &ArbitrationError{Err: err}
		}
		s.stream = stream
	}

	req := &p4_v1.StreamMessageRequest{
		Update: &p4_v1.StreamMessageRequest_Arbitration{
			Arbitration: &p4_v1.MasterArbitrationUpdate{
				DeviceId:   s.deviceID,
				ElectionId: &electionID,
			},
		},
	}
	if err := s.stream.Send(req); err != nil {
		return &ArbitrationError{Err: err}
	}

	// Wait for the first arbitration response; the stream may interleave
	// other message kinds (digests, packet-ins) which are not ours to handle.
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return &ArbitrationError{Err: err}
		}
		arb := resp.GetArbitration()
		if arb == nil {
			continue
		}
		if arb.Status.GetCode() != int32(code.Code_OK) {
			s.setStatus(NotMaster)
			log.Warnf("device %d: arbitration done, client %s did not acquire mastership: %s",
				s.deviceID, s.clientID, arb.Status.GetMessage())
			return &ArbitrationError{NotMaster: true, Err: ErrNotMaster}
		}
		s.setStatus(Master)
		log.Infof("device %d: arbitration done, client %s is primary (election %d)",
			s.deviceID, s.clientID, electionID.Low)
		return nil
	}
}

// PushPipelineConfig uploads the compiled program and its p4info, verify
// and commit in one step. Master only.
func (s *Session) PushPipelineConfig(ctx context.Context, info *p4config.P4Info, deviceConfig []byte) error {
	if s.Status() != Master {
		return &ConfigError{Reason: "not master", Err: ErrNotMaster}
	}
	s.mu.Lock()
	electionID := s.electionID
	s.mu.Unlock()

	req := &p4_v1.SetForwardingPipelineConfigRequest{
		DeviceId:   s.deviceID,
		ElectionId: &electionID,
		Action:     p4_v1.SetForwardingPipelineConfigRequest_VERIFY_AND_COMMIT,
		Config: &p4_v1.ForwardingPipelineConfig{
			P4Info:         info,
			P4DeviceConfig: deviceConfig,
		},
	}
	if _, err := s.client.SetForwardingPipelineConfig(ctx, req); err != nil {
		return &ConfigError{Reason: status.Convert(err).Message(), Err: err}
	}
	s.mu.Lock()
	s.pipelineSet = true
	s.mu.Unlock()
	log.Infof("device %d: forwarding pipeline config committed", s.deviceID)
	return nil
}

// PipelineConfigured reports whether PushPipelineConfig has succeeded on
// this session.
func (s *Session) PipelineConfigured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipelineSet
}

// Write issues one table-entry mutation. Refused locally without an RPC
// unless the session is Master. A device-side mastership rejection marks
// the session Lost.
func (s *Session) Write(ctx context.Context, entry *p4_v1.TableEntry, op Op) error {
	if st := s.Status(); st != Master {
		return &WriteError{Op: op, NotMaster: true, Err: ErrNotMaster}
	}
	s.mu.Lock()
	electionID := s.electionID
	s.mu.Unlock()

	req := &p4_v1.WriteRequest{
		DeviceId:   s.deviceID,
		ElectionId: &electionID,
		Updates: []*p4_v1.Update{
			{
				Type: op.updateType(),
				Entity: &p4_v1.Entity{
					Entity: &p4_v1.Entity_TableEntry{TableEntry: entry},
				},
			},
		},
	}
	if _, err := s.client.Write(ctx, req); err != nil {
		st := status.Convert(err)
		if st.Code() == codes.PermissionDenied {
			s.setStatus(Lost)
			log.Warnf("device %d: mastership revoked during write", s.deviceID)
			return &WriteError{Op: op, NotMaster: true, Err: ErrNotMaster}
		}
		return &WriteError{Op: op, Code: st.Code(), Err: err}
	}
	return nil
}

// ReadTable opens a fresh wildcard read of one table and returns a stream
// over its entries. The stream is finite and not restartable.
func (s *Session) ReadTable(ctx context.Context, tableID uint32) (*EntryStream, error) {
	req := &p4_v1.ReadRequest{
		DeviceId: s.deviceID,
		Entities: []*p4_v1.Entity{
			{
				Entity: &p4_v1.Entity_TableEntry{
					TableEntry: &p4_v1.TableEntry{TableId: tableID},
				},
			},
		},
	}
	rc, err := s.client.Read(ctx, req)
	if err != nil {
		return nil, err
	}
	return &EntryStream{rc: rc}, nil
}

// ReadTableAll drains ReadTable into a slice.
func (s *Session) ReadTableAll(ctx context.Context, tableID uint32) ([]*p4_v1.TableEntry, error) {
	stream, err := s.ReadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	return stream.All()
}

// Shutdown releases the transport. Idempotent and safe in any state,
// including a session that never finished connecting.
func (s *Session) Shutdown() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.status = Unconnected
	stream := s.stream
	conn := s.conn
	s.mu.Unlock()

	if stream != nil {
		_ = stream.CloseSend()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}
