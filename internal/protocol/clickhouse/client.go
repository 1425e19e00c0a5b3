package clickhouse

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strconv"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/pocc/portofcall-sub006/internal/deadline"
	"github.com/pocc/portofcall-sub006/internal/result"
	"github.com/pocc/portofcall-sub006/internal/rpcengine"
)

const clientName = "portofcall"
const clientMajor, clientMinor = 1, 0

// Client drives one ClickHouse native-protocol session over conn. The
// protocol carries no per-packet request id on the wire; the embedded
// engine exists for uniformity with the other C5-backed modules and
// only ever has one id outstanding, since a session issues Handshake
// then at most one Query before Close.
type Client struct {
	conn   net.Conn
	r      *bufio.Reader
	engine *rpcengine.Engine
}

func NewClient(conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		r:      bufio.NewReader(conn),
		engine: rpcengine.NewSequential(rpcengine.Monotonic),
	}
}

func (c *Client) applyDeadline(ctx context.Context) error {
	if ctx.Err() != nil {
		return result.Timeout("context expired before clickhouse call: %v", ctx.Err())
	}
	if dl, ok := deadline.Deadline(ctx); ok {
		_ = c.conn.SetDeadline(dl)
	}
	return nil
}

// Handshake sends ClientHello and decodes the server's reply, which is
// either a ServerHello or a ServerException (e.g. bad credentials).
func (c *Client) Handshake(ctx context.Context, database, user, password string) (*ServerHelloInfo, error) {
	if err := c.applyDeadline(ctx); err != nil {
		return nil, err
	}
	hello := EncodeClientHello(clientName, clientMajor, clientMinor, database, user, password)
	if _, err := c.conn.Write(hello); err != nil {
		return nil, result.Network("write clickhouse hello: %v", err)
	}

	typ, err := codec.ReadVarUInt(c.r)
	if err != nil {
		return nil, result.Network("read clickhouse packet type: %v", err)
	}
	switch typ {
	case ServerHello:
		return decodeServerHello(c.r)
	case ServerException:
		ex, err := decodeServerException(c.r)
		if err != nil {
			return nil, err
		}
		return nil, result.AuthFailed("clickhouse rejected hello: %v", ex)
	default:
		return nil, result.ProtocolError("unexpected clickhouse packet type %d after hello", typ)
	}
}

// QueryResult is the outcome of one query: its columns (name+type) and
// every row's values rendered as strings (spec §4.7.d).
type QueryResult struct {
	Columns  []ColumnMeta
	Rows     [][]string
	RowCount uint64
}

// ColumnMeta names one result column without its values.
type ColumnMeta struct {
	Name string
	Type string
}

// Query sends a ClientQuery plus its mandatory empty ClientData
// terminator, then drains server packets until EndOfStream, collecting
// every Data block's rows. Progress/ProfileInfo/Totals/Extremes/Log
// packets are read and discarded; an Exception at any point aborts the
// query and is returned as the error.
func (c *Client) Query(ctx context.Context, query string) (*QueryResult, error) {
	if err := c.applyDeadline(ctx); err != nil {
		return nil, err
	}
	id, err := c.engine.NextID()
	if err != nil {
		return nil, err
	}
	if _, err := c.engine.Register(id); err != nil {
		return nil, err
	}
	defer c.engine.Abandon(id)

	for _, pkt := range EncodeClientQuery(queryIDFor(id), query) {
		if _, err := c.conn.Write(pkt); err != nil {
			return nil, result.Network("write clickhouse query: %v", err)
		}
	}

	res := &QueryResult{}
	var columnsSeen bool
	for {
		typ, err := codec.ReadVarUInt(c.r)
		if err != nil {
			return nil, result.Network("read clickhouse packet type: %v", err)
		}
		switch typ {
		case ServerData:
			block, err := decodeDataBlock(c.r)
			if err != nil {
				return nil, err
			}
			if !columnsSeen && len(block.Columns) > 0 {
				for _, col := range block.Columns {
					res.Columns = append(res.Columns, ColumnMeta{Name: col.Name, Type: col.Type})
				}
				columnsSeen = true
			}
			for rowIdx := uint64(0); rowIdx < block.NumRows; rowIdx++ {
				row := make([]string, len(block.Columns))
				for colIdx, col := range block.Columns {
					row[colIdx] = col.Values[rowIdx]
				}
				res.Rows = append(res.Rows, row)
				res.RowCount++
			}
		case ServerException:
			ex, err := decodeServerException(c.r)
			if err != nil {
				return nil, err
			}
			return nil, result.Remote("clickhouse query failed: %v", ex)
		case ServerProgress:
			if err := skipProgress(c.r); err != nil {
				return nil, err
			}
		case ServerProfileInfo:
			if err := skipProfileInfo(c.r); err != nil {
				return nil, err
			}
		case ServerTotals, ServerExtremes, ServerLog, ServerProfileEvents:
			if _, err := decodeDataBlock(c.r); err != nil {
				return nil, err
			}
		case ServerEndOfStream:
			return res, nil
		default:
			return nil, result.ProtocolError("unexpected clickhouse packet type %d during query", typ)
		}
	}
}

func queryIDFor(id uint32) string {
	return "portofcall-" + strconv.FormatUint(uint64(id), 10)
}

// Ping sends ClientPing and waits for ServerPong, a liveness probe with
// no payload in either direction.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.applyDeadline(ctx); err != nil {
		return err
	}
	var buf bytes.Buffer
	_ = codec.WriteVarUInt(&buf, ClientPing)
	if _, err := c.conn.Write(buf.Bytes()); err != nil {
		return result.Network("write clickhouse ping: %v", err)
	}
	typ, err := codec.ReadVarUInt(c.r)
	if err != nil {
		return result.Network("read clickhouse packet type: %v", err)
	}
	if typ != ServerPong {
		return result.ProtocolError("expected ServerPong, got type %d", typ)
	}
	return nil
}
