package etherlynx

import (
	"encoding/binary"
	"net"
	"testing"
	"time"
)

// startFakeInverter binds a loopback UDP socket and answers each incoming
// datagram with whatever handler returns. A nil return drops the request
// (simulating a sleeping inverter). Returns the port to dial.
func startFakeInverter(t *testing.T, handler func(req []byte) []byte) int {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("binding fake inverter: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 4096)
		for {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return // Socket closed by cleanup
			}
			req := make([]byte, n)
			copy(req, buf[:n])
			if resp := handler(req); resp != nil {
				conn.WriteToUDP(resp, addr)
			}
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr).Port
}

// respRecord describes one record of a synthetic parameter response.
type respRecord struct {
	errBit bool
	dtype  DataType
	raw    uint32 // Little-endian value field, pre-encoded as uint32 bits
}

// buildParameterResponse answers a get-parameters request with the given
// records, copying module/index/subindex from the request so the reply is
// positionally aligned the way a real inverter answers.
func buildParameterResponse(t *testing.T, identity string, req []byte, records []respRecord) []byte {
	t.Helper()

	if len(req) < HeaderSize+countFieldSize {
		t.Fatalf("request too short to answer: %d bytes", len(req))
	}

	dataLen := countFieldSize + recordSize*len(records)
	resp := buildHeader(identity, DefaultSourceIdentity,
		FlagResponse, req[38], MsgGetSetParameter, uint32(dataLen))

	var count [countFieldSize]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(records)))
	resp = append(resp, count[:]...)

	for i, r := range records {
		reqRecord := req[HeaderSize+countFieldSize+i*recordSize:]
		attr := byte(r.dtype) << 1
		if r.errBit {
			attr |= 0x01
		}
		var value [4]byte
		binary.LittleEndian.PutUint32(value[:], r.raw)
		resp = append(resp, attr, reqRecord[1], reqRecord[2], reqRecord[3])
		resp = append(resp, value[:]...)
	}

	return resp
}

// requestRecordCount reads the record count field of a request datagram.
func requestRecordCount(t *testing.T, req []byte) int {
	t.Helper()
	if len(req) < HeaderSize+countFieldSize {
		t.Fatalf("request too short: %d bytes", len(req))
	}
	return int(binary.BigEndian.Uint32(req[HeaderSize : HeaderSize+countFieldSize]))
}

// testSession builds a session against the fake inverter with short timeouts.
func testSession(port int) *Session {
	return NewSession(SessionConfig{
		Address:          "127.0.0.1",
		Port:             port,
		Timeout:          200 * time.Millisecond,
		DiscoveryTimeout: 200 * time.Millisecond,
	})
}
