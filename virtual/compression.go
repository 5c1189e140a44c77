package virtual

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType defines the compression algorithm used for snapshots.
type CompressionType uint8

const (
	// CompressionNone indicates no compression.
	CompressionNone CompressionType = 0
	// CompressionLZ4 indicates LZ4 block compression (fast, good for hot snapshots).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD indicates ZSTD block compression (better ratio, good for cold snapshots).
	CompressionZSTD CompressionType = 2
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return "unknown"
	}
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Snapshot format: [UncompressedSize uint64][CompressedSize uint64][Data...]
// If CompressedSize == 0, the payload is stored uncompressed. Sizes are
// 64-bit: snapshots key whole device blobs, which routinely exceed 4GiB.
const snapshotHeaderSize = 16

// CompressSnapshot encodes data for snapshot storage using the given algorithm.
// Incompressible payloads (ratio > 0.9) are stored uncompressed.
func CompressSnapshot(data []byte, compressionType CompressionType) ([]byte, error) {
	var compressed []byte
	var err error

	switch compressionType {
	case CompressionLZ4:
		compressed, err = compressLZ4(data)
	case CompressionZSTD:
		compressed, err = compressZSTD(data)
	case CompressionNone:
		// Stored uncompressed below.
	default:
		return nil, errors.New("virtual: unknown compression type")
	}

	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		// Store uncompressed with header
		result := make([]byte, snapshotHeaderSize+len(data))
		binary.LittleEndian.PutUint64(result[0:], uint64(len(data)))
		binary.LittleEndian.PutUint64(result[8:], 0) // 0 = uncompressed
		copy(result[snapshotHeaderSize:], data)
		return result, nil
	}

	// Store compressed with header
	result := make([]byte, snapshotHeaderSize+len(compressed))
	binary.LittleEndian.PutUint64(result[0:], uint64(len(data)))
	binary.LittleEndian.PutUint64(result[8:], uint64(len(compressed)))
	copy(result[snapshotHeaderSize:], compressed)
	return result, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	maxCompressedSize := lz4.CompressBlockBound(len(data))
	compressed := make([]byte, maxCompressedSize)

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, nil // Incompressible
	}

	return compressed[:n], nil
}

func compressZSTD(data []byte) ([]byte, error) {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil), nil
}

// DecompressSnapshot decodes a snapshot payload written by CompressSnapshot.
// Snapshot bytes come back from external stores, so corrupt or truncated
// headers are rejected with an error, never a panic.
func DecompressSnapshot(data []byte, compressionType CompressionType) ([]byte, error) {
	if len(data) < snapshotHeaderSize {
		return nil, errors.New("virtual: snapshot too small for header")
	}

	uncompressedSize := binary.LittleEndian.Uint64(data[0:])
	compressedSize := binary.LittleEndian.Uint64(data[8:])
	if uncompressedSize > math.MaxInt {
		return nil, errors.New("virtual: snapshot header size out of range")
	}

	payload := data[snapshotHeaderSize:]

	if compressedSize == 0 {
		// Uncompressed payload
		if uint64(len(payload)) < uncompressedSize {
			return nil, errors.New("virtual: snapshot data too small")
		}
		return payload[:uncompressedSize], nil
	}

	if uint64(len(payload)) < compressedSize {
		return nil, errors.New("virtual: compressed snapshot data too small")
	}

	compressedData := payload[:compressedSize]
	result := make([]byte, uncompressedSize)

	switch compressionType {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(compressedData, result)
		if err != nil {
			return nil, err
		}
		if uint64(n) != uncompressedSize { //nolint:gosec // n is non-negative
			return nil, errors.New("virtual: decompressed size mismatch")
		}
		return result, nil

	case CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(compressedData, result[:0])
		if err != nil {
			return nil, err
		}
		if uint64(len(decoded)) != uncompressedSize {
			return nil, errors.New("virtual: decompressed size mismatch")
		}
		return decoded, nil

	default:
		return nil, errors.New("virtual: unknown compression type")
	}
}
