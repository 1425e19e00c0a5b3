package tds

import (
	"bytes"
	"encoding/binary"

	"github.com/pocc/portofcall-sub006/internal/result"
)

// Token type bytes (spec §4.7.c). Length fields inside the token
// stream are little-endian, unlike the packet header.
const (
	TokenLoginAck = 0xAD
	TokenError    = 0xAA
	TokenEnvChange = 0xE3
	TokenColName  = 0xA5
	TokenColFmt   = 0xA7
	TokenRow      = 0xD1
	TokenDone     = 0xFD
)

const loginAckStatusAccepted = 5

// parseTokenStream walks the response token stream following a Login,
// stopping at DONE.
func parseTokenStream(body []byte) (*LoginResult, error) {
	res := &LoginResult{}
	r := bytes.NewReader(body)

	for r.Len() > 0 {
		typ, err := r.ReadByte()
		if err != nil {
			return nil, result.ProtocolError("read token type: %v", err)
		}

		switch typ {
		case TokenLoginAck:
			length, err := readLE16(r)
			if err != nil {
				return nil, err
			}
			payload, err := readN(r, int(length))
			if err != nil {
				return nil, err
			}
			if len(payload) >= 1 {
				res.Accepted = payload[0] == loginAckStatusAccepted
			}
			if len(payload) >= 5 {
				res.TDSVersion = payload[1:5]
			}
			if len(payload) > 5 {
				nameLen := int(payload[5])
				if 6+nameLen <= len(payload) {
					res.ServerName = string(payload[6 : 6+nameLen])
				}
			}

		case TokenError:
			length, err := readLE16(r)
			if err != nil {
				return nil, err
			}
			payload, err := readN(r, int(length))
			if err != nil {
				return nil, err
			}
			if len(payload) >= 8 {
				msgLen := int(binary.LittleEndian.Uint16(payload[6:8]))
				if 8+msgLen <= len(payload) {
					res.ErrorMsg = string(payload[8 : 8+msgLen])
				}
			}

		case TokenEnvChange:
			length, err := readLE16(r)
			if err != nil {
				return nil, err
			}
			if _, err := readN(r, int(length)); err != nil {
				return nil, err
			}

		case TokenColName:
			length, err := readLE16(r)
			if err != nil {
				return nil, err
			}
			payload, err := readN(r, int(length))
			if err != nil {
				return nil, err
			}
			cr := bytes.NewReader(payload)
			for cr.Len() > 0 {
				nameLen, err := cr.ReadByte()
				if err != nil {
					break
				}
				name := make([]byte, nameLen)
				if _, err := cr.Read(name); err != nil {
					break
				}
				res.Columns = append(res.Columns, string(name))
			}

		case TokenColFmt, TokenRow:
			length, err := readLE16(r)
			if err != nil {
				return nil, err
			}
			if _, err := readN(r, int(length)); err != nil {
				return nil, err
			}

		case TokenDone:
			if _, err := readN(r, 2); err != nil { // status
				return nil, err
			}
			if _, err := readN(r, 2); err != nil { // curcmd
				return nil, err
			}
			countBytes, err := readN(r, 4)
			if err != nil {
				return nil, err
			}
			res.RowCount = binary.LittleEndian.Uint32(countBytes)
			return res, nil

		default:
			// Unrecognized token: best-effort, cannot safely resync
			// without knowing its length field shape.
			return res, nil
		}
	}
	return res, nil
}

func readLE16(r *bytes.Reader) (uint16, error) {
	b, err := readN(r, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func readN(r *bytes.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if n == 0 {
		return b, nil
	}
	if _, err := r.Read(b); err != nil {
		return nil, result.ProtocolError("read %d bytes: %v", n, err)
	}
	return b, nil
}
