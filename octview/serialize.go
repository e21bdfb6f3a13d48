/*
	This file supports serialization/deserialization and compression of tile
	payloads as they move through stores and across the tile-fetch boundary.
*/

package octview

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Compression is the format of compression for storing tile data.
// NOTE: Should be no more than 8 (3 bits) of compression types.
type Compression uint8

const (
	Uncompressed Compression = 0
	Snappy       Compression = 1 << iota
	Zstd
)

func (compress Compression) String() string {
	switch compress {
	case Uncompressed:
		return "No compression"
	case Snappy:
		return "Go Snappy compression"
	case Zstd:
		return "Zstandard compression"
	default:
		return "Unknown compression"
	}
}

// Checksum is the type of checksum employed for error checking stored data.
// NOTE: Should be no more than 4 (2 bits) of checksum types.
type Checksum uint8

const (
	NoChecksum Checksum = 0
	CRC32      Checksum = 1 << iota
)

func (checksum Checksum) String() string {
	switch checksum {
	case NoChecksum:
		return "No checksum"
	case CRC32:
		return "CRC32 checksum"
	default:
		return "Unknown checksum"
	}
}

// DefaultCompression and DefaultChecksum are what stores use unless
// configured otherwise.
const (
	DefaultCompression = Snappy
	DefaultChecksum    = CRC32
)

// SerializationFormat is a single byte combining both compression and
// checksum methods.
type SerializationFormat uint8

func EncodeSerializationFormat(compress Compression, checksum Checksum) SerializationFormat {
	a := (uint8(compress) & 0x07) << 5
	b := (uint8(checksum) & 0x03) << 3
	return SerializationFormat(a | b)
}

func DecodeSerializationFormat(s SerializationFormat) (compress Compression, checksum Checksum) {
	compress = Compression(uint8(s) >> 5)
	checksum = Checksum((uint8(s) >> 3) & 0x03)
	return
}

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	if zstdEncoder, err = zstd.NewWriter(nil); err != nil {
		panic(fmt.Sprintf("unable to initialize zstd encoder: %v", err))
	}
	if zstdDecoder, err = zstd.NewReader(nil); err != nil {
		panic(fmt.Sprintf("unable to initialize zstd decoder: %v", err))
	}
}

// SerializeData serializes a slice of bytes using optional compression and
// checksum.  The output layout is a format byte, an optional 4-byte CRC32 of
// the compressed data, then the compressed data itself.
func SerializeData(data []byte, compress Compression, checksum Checksum) ([]byte, error) {
	var buffer bytes.Buffer

	format := EncodeSerializationFormat(compress, checksum)
	if err := binary.Write(&buffer, binary.LittleEndian, format); err != nil {
		return nil, err
	}

	var byteData []byte
	switch compress {
	case Uncompressed:
		byteData = data
	case Snappy:
		byteData = snappy.Encode(nil, data)
	case Zstd:
		byteData = zstdEncoder.EncodeAll(data, nil)
	default:
		return nil, fmt.Errorf("illegal compression (%s) during serialization", compress)
	}

	switch checksum {
	case NoChecksum:
	case CRC32:
		crcChecksum := crc32.ChecksumIEEE(byteData)
		if err := binary.Write(&buffer, binary.LittleEndian, crcChecksum); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("illegal checksum (%s) during serialization", checksum)
	}

	if _, err := buffer.Write(byteData); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// DeserializeData returns a slice of bytes from serialized data, verifying
// any stored checksum.
func DeserializeData(s []byte) ([]byte, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("cannot deserialize empty data")
	}
	compress, checksum := DecodeSerializationFormat(SerializationFormat(s[0]))
	byteData := s[1:]

	switch checksum {
	case NoChecksum:
	case CRC32:
		if len(byteData) < 4 {
			return nil, fmt.Errorf("serialized data too short for CRC32 checksum")
		}
		stored := binary.LittleEndian.Uint32(byteData[:4])
		byteData = byteData[4:]
		if crc32.ChecksumIEEE(byteData) != stored {
			return nil, fmt.Errorf("bad checksum on deserialization")
		}
	default:
		return nil, fmt.Errorf("illegal checksum (%s) in serialized data", checksum)
	}

	switch compress {
	case Uncompressed:
		return byteData, nil
	case Snappy:
		return snappy.Decode(nil, byteData)
	case Zstd:
		return zstdDecoder.DecodeAll(byteData, nil)
	default:
		return nil, fmt.Errorf("illegal compression (%s) in serialized data", compress)
	}
}
