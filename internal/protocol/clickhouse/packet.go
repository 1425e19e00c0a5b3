// Package clickhouse implements the ClickHouse native TCP protocol
// (spec §4.7.d): a VarUInt-tagged packet stream, not length-prefixed,
// carrying a Hello/Query/Data exchange.
package clickhouse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/pocc/portofcall-sub006/internal/result"
)

// Client packet types.
const (
	ClientHello  = 0
	ClientQuery  = 1
	ClientData   = 2
	ClientCancel = 3
	ClientPing   = 4
)

// Server packet types.
const (
	ServerHello         = 0
	ServerData          = 1
	ServerException     = 2
	ServerProgress      = 3
	ServerPong          = 4
	ServerEndOfStream   = 5
	ServerProfileInfo   = 6
	ServerTotals        = 7
	ServerExtremes      = 8
	ServerLog           = 10
	ServerProfileEvents = 14
)

// TCPProtocolVersion is the revision this client advertises in
// ClientHello; high enough that the server always sends both optional
// ServerHello fields (timezone, display_name).
const TCPProtocolVersion = 54446

const maxStringLen = 1 << 20

// ServerHelloInfo is the decoded ServerHello response.
type ServerHelloInfo struct {
	ServerName  string
	Major       uint64
	Minor       uint64
	Revision    uint64
	Timezone    string
	DisplayName string
}

// ServerError is a decoded ServerException, possibly chained.
type ServerError struct {
	Code       uint32
	Name       string
	Message    string
	StackTrace string
	Nested     *ServerError
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("clickhouse exception %d (%s): %s", e.Code, e.Name, e.Message)
}

// EncodeClientHello builds a complete ClientHello packet: the VarUInt
// packet-type tag followed by the hello fields.
func EncodeClientHello(clientName string, major, minor uint64, database, user, password string) []byte {
	var buf bytes.Buffer
	_ = codec.WriteVarUInt(&buf, ClientHello)
	_ = codec.WriteNativeString(&buf, clientName)
	_ = codec.WriteVarUInt(&buf, major)
	_ = codec.WriteVarUInt(&buf, minor)
	_ = codec.WriteVarUInt(&buf, TCPProtocolVersion)
	_ = codec.WriteNativeString(&buf, database)
	_ = codec.WriteNativeString(&buf, user)
	_ = codec.WriteNativeString(&buf, password)
	return buf.Bytes()
}

// blockInfoTerminator ends a block-info field list (field_num=0).
const blockInfoTerminator = 0

func writeEmptyBlockInfo(buf *bytes.Buffer) {
	_ = codec.WriteVarUInt(buf, 1)
	_ = buf.WriteByte(0) // is_overflows
	_ = codec.WriteVarUInt(buf, 2)
	writeInt32LE(buf, -1) // bucket_num
	_ = codec.WriteVarUInt(buf, blockInfoTerminator)
}

func writeInt32LE(buf *bytes.Buffer, v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	buf.Write(b[:])
}

func readInt32LE(r io.Reader) (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("read int32le: %w", err)
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

func readUint32LE(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("read uint32le: %w", err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// EncodeClientQuery builds a ClientQuery packet followed by the
// mandatory empty ClientData block that terminates the query (spec
// §4.7.d: "after sending a query, client must send an empty data
// block").
func EncodeClientQuery(queryID, query string) [][]byte {
	var queryPkt bytes.Buffer
	_ = codec.WriteVarUInt(&queryPkt, ClientQuery)
	_ = codec.WriteNativeString(&queryPkt, queryID)
	// client_info: omitted fields are not sent at this revision; a real
	// deployment would send interface/query_kind/etc, but this client
	// only ever issues one query per session and the server tolerates
	// the short form used by very old clients.
	_ = codec.WriteVarUInt(&queryPkt, 1) // stage = Complete
	_ = queryPkt.WriteByte(0)            // compression = none
	_ = codec.WriteNativeString(&queryPkt, query)

	var dataPkt bytes.Buffer
	_ = codec.WriteVarUInt(&dataPkt, ClientData)
	_ = codec.WriteNativeString(&dataPkt, "") // table_name
	encodeBlock(&dataPkt, nil, 0)

	return [][]byte{queryPkt.Bytes(), dataPkt.Bytes()}
}

// encodeBlock writes a block-info section plus num_columns/num_rows; an
// empty block (columns=nil, rows=0) is what terminates a query.
func encodeBlock(buf *bytes.Buffer, columnNames []string, numRows uint64) {
	writeEmptyBlockInfo(buf)
	_ = codec.WriteVarUInt(buf, uint64(len(columnNames)))
	_ = codec.WriteVarUInt(buf, numRows)
}

// Column is one decoded data-block column: its name, its ClickHouse
// type name, and its values rendered as strings (spec §4.7.d requires
// only best-effort string rendering for the Result Envelope).
type Column struct {
	Name   string
	Type   string
	Values []string
}

// DataBlock is one decoded Data packet.
type DataBlock struct {
	NumRows uint64
	Columns []Column
}

// revisionTimezone / revisionDisplayName are the ServerHello revision
// thresholds from spec §4.7.d gating its two optional trailing fields.
const (
	revisionTimezone    = 54423
	revisionDisplayName = 54372
)

// decodeServerHello reads a ServerHello body directly off r (no outer
// framing: every field is read as it's needed).
func decodeServerHello(r io.Reader) (*ServerHelloInfo, error) {
	name, err := codec.ReadNativeString(r, maxStringLen)
	if err != nil {
		return nil, result.ProtocolError("decode server_name: %v", err)
	}
	major, err := codec.ReadVarUInt(r)
	if err != nil {
		return nil, result.ProtocolError("decode server major: %v", err)
	}
	minor, err := codec.ReadVarUInt(r)
	if err != nil {
		return nil, result.ProtocolError("decode server minor: %v", err)
	}
	revision, err := codec.ReadVarUInt(r)
	if err != nil {
		return nil, result.ProtocolError("decode server revision: %v", err)
	}

	info := &ServerHelloInfo{ServerName: name, Major: major, Minor: minor, Revision: revision}
	if revision >= revisionTimezone {
		tz, err := codec.ReadNativeString(r, maxStringLen)
		if err != nil {
			return nil, result.ProtocolError("decode timezone: %v", err)
		}
		info.Timezone = tz
	}
	if revision >= revisionDisplayName {
		dn, err := codec.ReadNativeString(r, maxStringLen)
		if err != nil {
			return nil, result.ProtocolError("decode display_name: %v", err)
		}
		info.DisplayName = dn
	}
	return info, nil
}

// decodeServerException reads one ServerException, following the
// has_nested chain to completion.
func decodeServerException(r io.Reader) (*ServerError, error) {
	code, err := readUint32LE(r)
	if err != nil {
		return nil, result.ProtocolError("decode exception code: %v", err)
	}
	name, err := codec.ReadNativeString(r, maxStringLen)
	if err != nil {
		return nil, result.ProtocolError("decode exception name: %v", err)
	}
	message, err := codec.ReadNativeString(r, maxStringLen)
	if err != nil {
		return nil, result.ProtocolError("decode exception message: %v", err)
	}
	stack, err := codec.ReadNativeString(r, maxStringLen)
	if err != nil {
		return nil, result.ProtocolError("decode exception stack_trace: %v", err)
	}
	hasNested, err := readByte(r)
	if err != nil {
		return nil, result.ProtocolError("decode exception has_nested: %v", err)
	}

	ex := &ServerError{Code: code, Name: name, Message: message, StackTrace: stack}
	if hasNested != 0 {
		nested, err := decodeServerException(r)
		if err != nil {
			return nil, err
		}
		ex.Nested = nested
	}
	return ex, nil
}

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("read byte: %w", err)
	}
	return b[0], nil
}

// decodeBlockInfo consumes a block-info field list, discarding its
// values: is_overflows and bucket_num describe result aggregation
// behavior this client has no use for.
func decodeBlockInfo(r io.Reader) error {
	for {
		fieldNum, err := codec.ReadVarUInt(r)
		if err != nil {
			return result.ProtocolError("decode block info field: %v", err)
		}
		switch fieldNum {
		case blockInfoTerminator:
			return nil
		case 1:
			if _, err := readByte(r); err != nil {
				return result.ProtocolError("decode is_overflows: %v", err)
			}
		case 2:
			if _, err := readInt32LE(r); err != nil {
				return result.ProtocolError("decode bucket_num: %v", err)
			}
		default:
			return result.ProtocolError("unknown block info field %d", fieldNum)
		}
	}
}

// decodeDataBlock reads one Data packet's body: table name, block info,
// then num_columns/num_rows, then each column's name, type, and values.
func decodeDataBlock(r io.Reader) (*DataBlock, error) {
	if _, err := codec.ReadNativeString(r, maxStringLen); err != nil {
		return nil, result.ProtocolError("decode table name: %v", err)
	}
	if err := decodeBlockInfo(r); err != nil {
		return nil, err
	}
	numColumns, err := codec.ReadVarUInt(r)
	if err != nil {
		return nil, result.ProtocolError("decode num_columns: %v", err)
	}
	numRows, err := codec.ReadVarUInt(r)
	if err != nil {
		return nil, result.ProtocolError("decode num_rows: %v", err)
	}

	block := &DataBlock{NumRows: numRows}
	for i := uint64(0); i < numColumns; i++ {
		name, err := codec.ReadNativeString(r, maxStringLen)
		if err != nil {
			return nil, result.ProtocolError("decode column name: %v", err)
		}
		typ, err := codec.ReadNativeString(r, maxStringLen)
		if err != nil {
			return nil, result.ProtocolError("decode column type: %v", err)
		}
		values, err := decodeColumnValues(r, typ, numRows)
		if err != nil {
			return nil, result.ProtocolError("decode column %q values: %v", name, err)
		}
		block.Columns = append(block.Columns, Column{Name: name, Type: typ, Values: values})
	}
	return block, nil
}

func readUint16LE(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("read uint16le: %w", err)
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readUint64LE(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("read uint64le: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// decodeColumnValues dispatches on the column's declared type name,
// rendering every value as a string for the Result Envelope (spec
// §4.7.d). Unknown types fall back to native-string decoding.
func decodeColumnValues(r io.Reader, typeName string, numRows uint64) ([]string, error) {
	if inner, ok := strings.CutPrefix(typeName, "Nullable("); ok {
		inner = strings.TrimSuffix(inner, ")")
		values := make([]string, 0, numRows)
		for i := uint64(0); i < numRows; i++ {
			flag, err := readByte(r)
			if err != nil {
				return nil, err
			}
			if flag != 0 {
				values = append(values, "NULL")
				continue
			}
			v, err := decodeSingleValue(r, inner)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil
	}

	if typeName == "LowCardinality(String)" {
		return decodeLowCardinalityString(r)
	}

	if widthStr, ok := strings.CutPrefix(typeName, "FixedString("); ok {
		widthStr = strings.TrimSuffix(widthStr, ")")
		width, err := strconv.Atoi(widthStr)
		if err != nil {
			return nil, fmt.Errorf("parse FixedString width %q: %w", widthStr, err)
		}
		values := make([]string, 0, numRows)
		for i := uint64(0); i < numRows; i++ {
			buf := make([]byte, width)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, err
			}
			values = append(values, strings.TrimRight(string(buf), "\x00"))
		}
		return values, nil
	}

	values := make([]string, 0, numRows)
	for i := uint64(0); i < numRows; i++ {
		v, err := decodeSingleValue(r, typeName)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func decodeSingleValue(r io.Reader, typeName string) (string, error) {
	switch typeName {
	case "String":
		return codec.ReadNativeString(r, maxStringLen)
	case "UInt8":
		b, err := readByte(r)
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(uint64(b), 10), nil
	case "Int8":
		b, err := readByte(r)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(int64(int8(b)), 10), nil
	case "UInt16":
		v, err := readUint16LE(r)
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(uint64(v), 10), nil
	case "Int16":
		v, err := readUint16LE(r)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(int64(int16(v)), 10), nil
	case "UInt32":
		v, err := readUint32LE(r)
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(uint64(v), 10), nil
	case "Int32":
		v, err := readInt32LE(r)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(int64(v), 10), nil
	case "UInt64":
		v, err := readUint64LE(r)
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(v, 10), nil
	case "Int64":
		v, err := readUint64LE(r)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(int64(v), 10), nil
	case "Float32":
		v, err := readUint32LE(r)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(float64(math.Float32frombits(v)), 'g', -1, 32), nil
	case "Float64":
		v, err := readUint64LE(r)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(math.Float64frombits(v), 'g', -1, 64), nil
	case "Date":
		v, err := readUint16LE(r)
		if err != nil {
			return "", err
		}
		return time.Unix(int64(v)*86400, 0).UTC().Format("2006-01-02"), nil
	case "DateTime":
		v, err := readUint32LE(r)
		if err != nil {
			return "", err
		}
		return time.Unix(int64(v), 0).UTC().Format(time.RFC3339), nil
	default:
		return codec.ReadNativeString(r, maxStringLen)
	}
}

// decodeLowCardinalityString reads a LowCardinality(String) column:
// a serialization version, an index-type-and-flags word, a dictionary
// (itself a plain string column), then one dictionary index per row
// sized according to the index type (UInt8/16/32/64).
func decodeLowCardinalityString(r io.Reader) ([]string, error) {
	if _, err := readUint64LE(r); err != nil { // serialization version
		return nil, err
	}
	indexMeta, err := readUint64LE(r)
	if err != nil {
		return nil, err
	}
	dictSize, err := readUint64LE(r)
	if err != nil {
		return nil, err
	}
	dict := make([]string, dictSize)
	for i := range dict {
		s, err := codec.ReadNativeString(r, maxStringLen)
		if err != nil {
			return nil, err
		}
		dict[i] = s
	}
	rowCount, err := readUint64LE(r)
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, rowCount)
	indexType := indexMeta & 0xFF
	for i := uint64(0); i < rowCount; i++ {
		var idx uint64
		switch indexType {
		case 0:
			b, err := readByte(r)
			if err != nil {
				return nil, err
			}
			idx = uint64(b)
		case 1:
			v, err := readUint16LE(r)
			if err != nil {
				return nil, err
			}
			idx = uint64(v)
		case 2:
			v, err := readUint32LE(r)
			if err != nil {
				return nil, err
			}
			idx = uint64(v)
		default:
			v, err := readUint64LE(r)
			if err != nil {
				return nil, err
			}
			idx = v
		}
		if idx < uint64(len(dict)) {
			values = append(values, dict[idx])
		} else {
			values = append(values, "")
		}
	}
	return values, nil
}

// skipProgress consumes a Progress packet (rows, bytes, total_rows, each
// a VarUInt); this client counts rows from the Data blocks it decodes,
// so progress updates are read only to stay in sync with the stream.
func skipProgress(r io.Reader) error {
	for i := 0; i < 3; i++ {
		if _, err := codec.ReadVarUInt(r); err != nil {
			return result.ProtocolError("decode progress field %d: %v", i, err)
		}
	}
	return nil
}

// skipProfileInfo consumes a ProfileInfo packet: rows, blocks, bytes,
// applied_limit(1 byte), rows_before_limit, calculated_rows_before_limit(1 byte).
func skipProfileInfo(r io.Reader) error {
	if _, err := codec.ReadVarUInt(r); err != nil { // rows
		return result.ProtocolError("decode profile rows: %v", err)
	}
	if _, err := codec.ReadVarUInt(r); err != nil { // blocks
		return result.ProtocolError("decode profile blocks: %v", err)
	}
	if _, err := codec.ReadVarUInt(r); err != nil { // bytes
		return result.ProtocolError("decode profile bytes: %v", err)
	}
	if _, err := readByte(r); err != nil { // applied_limit
		return result.ProtocolError("decode profile applied_limit: %v", err)
	}
	if _, err := codec.ReadVarUInt(r); err != nil { // rows_before_limit
		return result.ProtocolError("decode profile rows_before_limit: %v", err)
	}
	if _, err := readByte(r); err != nil { // calculated_rows_before_limit
		return result.ProtocolError("decode profile calculated_rows_before_limit: %v", err)
	}
	return nil
}
