package etherlynx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// DefaultPort is the fixed UDP port EtherLynx inverters listen on.
const DefaultPort = 48004

// Packet framing constants (user guide, chapter 5).
const (
	// HeaderSize is the fixed EtherLynx header length: 13 double words.
	HeaderSize = 52

	// dataOffsetWords is the data offset in 32-bit words, minimum 13.
	dataOffsetWords = 0x0D

	// sourceIdentitySize and destIdentitySize are the zero-padded,
	// NUL-terminated identity fields at the start of the header.
	sourceIdentitySize = 12
	destIdentitySize   = 24

	// flagsOffset is the byte position of the flags field in the header.
	flagsOffset = 37

	// recordSize is the length of one parameter record in the payload.
	recordSize = 8

	// countFieldSize is the length of the big-endian record count that
	// precedes the records.
	countFieldSize = 4
)

// Header flags (byte 37).
const (
	// FlagResponse distinguishes responses from requests.
	FlagResponse byte = 0x40

	// FlagResponseNeeded asks the receiver to answer.
	FlagResponseNeeded byte = 0x20

	// FlagSyn is reserved for synchronisation.
	FlagSyn byte = 0x10

	// FlagFullBroadcast addresses every device on the network.
	FlagFullBroadcast byte = 0x08

	// FlagGroupBroadcast addresses a device group.
	FlagGroupBroadcast byte = 0x04

	// FlagSingleBroadcast addresses one specific device.
	FlagSingleBroadcast byte = 0x02

	// FlagError marks a packet-level error in a response.
	FlagError byte = 0x01
)

// Message IDs (header byte 39).
const (
	// MsgPing is the discovery handshake.
	MsgPing byte = 0x01

	// MsgGetSetParameter reads or writes typed parameter values.
	MsgGetSetParameter byte = 0x02

	// MsgGetSetText reads or writes text values. Unused here.
	MsgGetSetText byte = 0x03
)

// DataType is the 4-bit parameter data type code carried in the attribute
// byte of each record (bits 1-4).
type DataType byte

// Parameter data type codes (user guide, appendix C).
const (
	TypeReserved    DataType = 0x0
	TypeBoolean     DataType = 0x1
	TypeSigned8     DataType = 0x2
	TypeSigned16    DataType = 0x3
	TypeSigned32    DataType = 0x4
	TypeUnsigned8   DataType = 0x5
	TypeUnsigned16  DataType = 0x6
	TypeUnsigned32  DataType = 0x7
	TypeFloat32     DataType = 0x8
	TypeVisibleStr  DataType = 0x9
	TypePackedBytes DataType = 0xA
	TypePackedWords DataType = 0xB
	TypeFixPoint    DataType = 0xC
)

// String returns the protocol name of the data type code.
func (d DataType) String() string {
	switch d {
	case TypeReserved:
		return "reserved"
	case TypeBoolean:
		return "boolean"
	case TypeSigned8:
		return "signed8"
	case TypeSigned16:
		return "signed16"
	case TypeSigned32:
		return "signed32"
	case TypeUnsigned8:
		return "unsigned8"
	case TypeUnsigned16:
		return "unsigned16"
	case TypeUnsigned32:
		return "unsigned32"
	case TypeFloat32:
		return "float32"
	case TypeVisibleStr:
		return "visible-string"
	case TypePackedBytes:
		return "packed-bytes"
	case TypePackedWords:
		return "packed-words"
	case TypeFixPoint:
		return "fixed-point"
	default:
		return fmt.Sprintf("unknown(0x%X)", byte(d))
	}
}

// padIdentity encodes an identity as a NUL-terminated string zero-padded to
// length. Per the user guide, unused bytes after the terminating zero must be
// zero. Identities longer than length-1 are truncated to leave room for the
// terminator.
func padIdentity(identity string, length int) []byte {
	buf := make([]byte, length)
	if len(identity) > length-1 {
		identity = identity[:length-1]
	}
	copy(buf, identity)
	return buf
}

// buildHeader assembles the fixed 52-byte EtherLynx header.
//
// Layout (all multi-byte integers big-endian):
//
//	bytes  0-11  source identity (NUL-terminated, zero-padded)
//	bytes 12-35  destination identity (NUL-terminated, zero-padded)
//	byte  36     data offset (5 bits, minimum 13) shifted into the top bits
//	byte  37     flags
//	byte  38     transaction number
//	byte  39     message ID
//	bytes 40-43  total data length
//	bytes 44-47  sequence number (0, non-file-transfer)
//	bytes 48-51  acknowledge number (0 for requests, reserved otherwise)
func buildHeader(source, dest string, flags, transactionNo, messageID byte, dataLen uint32) []byte {
	header := make([]byte, HeaderSize)

	copy(header[0:sourceIdentitySize], padIdentity(source, sourceIdentitySize))
	copy(header[sourceIdentitySize:sourceIdentitySize+destIdentitySize], padIdentity(dest, destIdentitySize))

	header[36] = (dataOffsetWords & 0x1F) << 3
	header[flagsOffset] = flags
	header[38] = transactionNo
	header[39] = messageID

	binary.BigEndian.PutUint32(header[40:44], dataLen)
	// Sequence, acknowledge and reserved stay zero.

	return header
}

// BuildPing builds a zero-payload broadcast ping used for discovery.
//
// Flags: full broadcast + response needed. The destination identity is
// empty; the responding inverter fills its own serial number into the
// source field of the reply.
func BuildPing(source string) []byte {
	return buildHeader(source, "", FlagFullBroadcast|FlagResponseNeeded, 0, MsgPing, 0)
}

// BuildGetParameters builds a Get Parameter Values request for the given
// parameters.
//
// Flags: single broadcast + response needed. The payload is a 4-byte
// big-endian record count followed by one 8-byte record per parameter:
// attribute byte 0 (get, no error), module byte with the module ID in both
// nibbles, index, subindex, and a zero value field.
//
// The codec does not bound the batch size; the caller enforces a practical
// per-datagram ceiling.
func BuildGetParameters(source, dest string, params []Parameter, transactionNo byte) []byte {
	dataLen := countFieldSize + recordSize*len(params)
	packet := make([]byte, 0, HeaderSize+dataLen)
	packet = append(packet, buildHeader(source, dest,
		FlagSingleBroadcast|FlagResponseNeeded, transactionNo,
		MsgGetSetParameter, uint32(dataLen))...)

	var count [countFieldSize]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(params)))
	packet = append(packet, count[:]...)

	for _, p := range params {
		moduleByte := (p.ModuleID&0x0F)<<4 | p.ModuleID&0x0F
		packet = append(packet,
			0x00, // attributes: get, no error
			moduleByte,
			p.Index,
			p.Subindex,
			0x00, 0x00, 0x00, 0x00, // value, zero for a get
		)
	}

	return packet
}

// ParsePingResponse extracts the inverter identity from a ping response.
//
// The identity is the NUL-terminated ASCII string in the first 12 bytes of
// the reply (the responder's source field).
//
// Returns:
//   - string: The discovered identity
//   - error: ErrShortPacket, ErrNotResponse or ErrNoIdentity
func ParsePingResponse(data []byte) (string, error) {
	if len(data) < HeaderSize {
		return "", fmt.Errorf("%w: ping response is %d bytes", ErrShortPacket, len(data))
	}
	if data[flagsOffset]&FlagResponse == 0 {
		return "", ErrNotResponse
	}

	identity := data[0:sourceIdentitySize]
	if i := bytes.IndexByte(identity, 0); i >= 0 {
		identity = identity[:i]
	}
	if len(identity) == 0 {
		return "", ErrNoIdentity
	}
	return string(identity), nil
}

// ParseParameterResponse decodes a Get Parameter Values response against the
// request it answers.
//
// Records are paired with the requested parameters purely by position; the
// protocol does not require the reply to echo index/subindex, and observed
// devices keep request order. Records whose attribute error bit is set are
// skipped and their keys reported in failed; all other records are decoded
// per their data type (response type when present, declared type otherwise),
// scaled, and rounded to 3 decimals.
//
// Returns:
//   - map: Decoded values keyed by catalog key (successes only)
//   - []string: Keys whose record carried the error bit
//   - error: ErrShortPacket, ErrNotResponse or ErrDeviceError; the map is
//     empty when non-nil
func ParseParameterResponse(data []byte, requested []Parameter) (map[string]float64, []string, error) {
	if len(data) < HeaderSize {
		return nil, nil, fmt.Errorf("%w: response is %d bytes", ErrShortPacket, len(data))
	}

	flags := data[flagsOffset]
	if flags&FlagResponse == 0 {
		return nil, nil, ErrNotResponse
	}
	if flags&FlagError != 0 {
		return nil, nil, ErrDeviceError
	}

	payload := data[HeaderSize:]
	if len(payload) < countFieldSize {
		return nil, nil, fmt.Errorf("%w: payload is %d bytes", ErrShortPacket, len(payload))
	}

	values := make(map[string]float64, len(requested))
	var failed []string

	offset := countFieldSize
	for _, param := range requested {
		if offset+recordSize > len(payload) {
			break
		}
		record := payload[offset : offset+recordSize]
		offset += recordSize

		attr := record[0]
		if attr&0x01 != 0 {
			failed = append(failed, param.Key)
			continue
		}

		dataType := DataType(attr >> 1 & 0x0F)
		if dataType == TypeReserved {
			dataType = param.Type
		}

		raw := decodeRaw(record[4:8], dataType)
		values[param.Key] = round3(raw * param.Scale)
	}

	return values, failed, nil
}

// misalignedKeys lists requested keys whose response record carries a
// different index/subindex than the request. Pairing stays positional
// regardless; this exists for diagnostic logging only.
func misalignedKeys(data []byte, requested []Parameter) []string {
	if len(data) < HeaderSize+countFieldSize {
		return nil
	}
	payload := data[HeaderSize:]

	var keys []string
	offset := countFieldSize
	for _, param := range requested {
		if offset+recordSize > len(payload) {
			break
		}
		record := payload[offset : offset+recordSize]
		offset += recordSize
		if record[2] != param.Index || record[3] != param.Subindex {
			keys = append(keys, param.Key)
		}
	}
	return keys
}

// ResponseCount returns the record count field of a parameter response.
// Used to detect replies whose count diverges from the request.
func ResponseCount(data []byte) (uint32, bool) {
	if len(data) < HeaderSize+countFieldSize {
		return 0, false
	}
	return binary.BigEndian.Uint32(data[HeaderSize : HeaderSize+countFieldSize]), true
}

// decodeRaw interprets a 4-byte little-endian value field per its data type.
// Packed and string formats carry no richer meaning in 4 bytes and fall back
// to the unsigned-32 interpretation, as does the reserved code.
func decodeRaw(raw []byte, dataType DataType) float64 {
	u32 := binary.LittleEndian.Uint32(raw)

	switch dataType {
	case TypeBoolean:
		if u32 != 0 {
			return 1
		}
		return 0
	case TypeSigned8:
		return float64(int8(raw[0]))
	case TypeSigned16:
		return float64(int16(binary.LittleEndian.Uint16(raw[:2])))
	case TypeSigned32:
		return float64(int32(u32))
	case TypeUnsigned8:
		return float64(raw[0])
	case TypeUnsigned16:
		return float64(binary.LittleEndian.Uint16(raw[:2]))
	case TypeFloat32:
		return float64(math.Float32frombits(u32))
	default:
		return float64(u32)
	}
}

// round3 rounds to 3 decimal digits, the resolution of the finest catalog
// scale (0.001).
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
