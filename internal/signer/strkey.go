package signer

import (
	"bytes"
	"encoding/base32"
	"encoding/binary"
	"fmt"
)

const (
	versionAccountID byte = 6 << 3
	versionSeed      byte = 18 << 3
)

var strkeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func encodeStrkey(version byte, payload []byte) string {
	raw := make([]byte, 0, 1+len(payload)+2)
	raw = append(raw, version)
	raw = append(raw, payload...)
	raw = binary.LittleEndian.AppendUint16(raw, crc16(raw))
	return strkeyEncoding.EncodeToString(raw)
}

func decodeStrkey(version byte, s string) ([]byte, error) {
	raw, err := strkeyEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode strkey: %w", err)
	}
	if len(raw) < 3 {
		return nil, fmt.Errorf("decode strkey: too short")
	}
	if raw[0] != version {
		return nil, fmt.Errorf("decode strkey: unexpected version byte %d", raw[0])
	}
	body, checksum := raw[:len(raw)-2], raw[len(raw)-2:]
	want := binary.LittleEndian.AppendUint16(nil, crc16(body))
	if !bytes.Equal(checksum, want) {
		return nil, fmt.Errorf("decode strkey: checksum mismatch")
	}
	return body[1:], nil
}

// crc16 is CRC-16/XMODEM.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
