package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/dRec/lib/record"
	"github.com/ValentinKolb/dRec/rpc/common"
	"github.com/ValentinKolb/dRec/rpc/serializer"
	"github.com/ValentinKolb/dRec/rpc/transport"
	"github.com/ValentinKolb/dRec/rpc/transport/tcp"
)

// RecordClient is a client for the record protocol over a single connection.
// Requests are sent one at a time; concurrent calls are serialized.
type RecordClient struct {
	rpcClientAdapter
	mu     sync.Mutex
	closed bool
}

// NewRPCRecordClient connects to the server using the given transport and serializer
func NewRPCRecordClient(
	ctx context.Context,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RecordClient, error) {
	conn, err := transport.Connect(ctx, config)
	if err != nil {
		return nil, err
	}

	return &RecordClient{
		rpcClientAdapter: rpcClientAdapter{
			config:     config,
			conn:       conn,
			reader:     bufio.NewReader(conn),
			serializer: serializer,
		},
	}, nil
}

// Dial connects to a record server over TCP using the JSON line protocol.
// timeout bounds the connection setup and every single request.
func Dial(ctx context.Context, endpoint string, timeout time.Duration) (*RecordClient, error) {
	return NewRPCRecordClient(ctx, common.ClientConfig{
		Endpoint: endpoint,
		Timeout:  timeout,
	}, tcp.NewTCPClientTransport(), serializer.NewJSONSerializer())
}

// --------------------------------------------------------------------------
// Record operations
// --------------------------------------------------------------------------

// Insert stores a new record (its ID is ignored) and returns it with the assigned ID
func (c *RecordClient) Insert(ctx context.Context, rec record.Record) (record.Record, error) {
	payload, err := recordPayload(rec)
	if err != nil {
		return record.Record{}, err
	}

	var inserted record.Record
	err = c.call(ctx, common.NewRequest(common.ActionInsert, payload), &inserted)
	return inserted, err
}

// Find returns the record with the given id
func (c *RecordClient) Find(ctx context.Context, id int64) (record.Record, error) {
	var rec record.Record
	err := c.call(ctx, common.NewRequest(common.ActionFind, idPayload(id)), &rec)
	return rec, err
}

// List returns all records
func (c *RecordClient) List(ctx context.Context) ([]record.Record, error) {
	var recs []record.Record
	err := c.call(ctx, common.NewRequest(common.ActionList, nil), &recs)
	return recs, err
}

// Update changes the fields present in changes and returns the updated record
func (c *RecordClient) Update(ctx context.Context, id int64, changes record.Draft) (record.Record, error) {
	payload, err := draftPayload(changes)
	if err != nil {
		return record.Record{}, err
	}
	payload["id"] = idPayload(id)["id"]

	var updated record.Record
	err = c.call(ctx, common.NewRequest(common.ActionUpdate, payload), &updated)
	return updated, err
}

// Delete removes the record with the given id
func (c *RecordClient) Delete(ctx context.Context, id int64) error {
	return c.call(ctx, common.NewRequest(common.ActionDelete, idPayload(id)), nil)
}

// Do sends an arbitrary request and returns the raw response.
// An ERROR response is returned together with a *ResponseError.
func (c *RecordClient) Do(ctx context.Context, req *common.Request) (*common.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, net.ErrClosed
	}
	return c.invokeRPCRequest(ctx, req)
}

// Quit ends the session politely and closes the connection
func (c *RecordClient) Quit(ctx context.Context) error {
	_, err := c.Do(ctx, common.NewRequest(common.ActionQuit, nil))
	return errors.Join(err, c.Close())
}

// Close closes the connection without saying goodbye
func (c *RecordClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// call sends the request and decodes the response data into out (if not nil)
func (c *RecordClient) call(ctx context.Context, req *common.Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeData(resp, out)
}

func idPayload(id int64) common.Payload {
	raw, _ := json.Marshal(id)
	return common.Payload{"id": raw}
}

func recordPayload(rec record.Record) (common.Payload, error) {
	return draftPayload(record.Draft{
		Name:  record.Some(rec.Name),
		Dob:   record.Some(rec.Dob),
		Gpa:   record.Some(rec.Gpa),
		Sex:   record.Some(rec.Sex),
		Major: record.Some(rec.Major),
	})
}

// draftPayload encodes the present fields of the draft
func draftPayload(d record.Draft) (common.Payload, error) {
	payload := common.Payload{}
	add := func(field string, v any, present bool) error {
		if !present {
			return nil
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		payload[field] = raw
		return nil
	}

	name, ok := d.Name.Get()
	if err := add("name", name, ok); err != nil {
		return nil, err
	}
	dob, ok := d.Dob.Get()
	if err := add("dob", dob, ok); err != nil {
		return nil, err
	}
	gpa, ok := d.Gpa.Get()
	if err := add("gpa", gpa, ok); err != nil {
		return nil, err
	}
	sex, ok := d.Sex.Get()
	if err := add("sex", sex, ok); err != nil {
		return nil, err
	}
	major, ok := d.Major.Get()
	if err := add("major", major, ok); err != nil {
		return nil, err
	}
	return payload, nil
}
