package file

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/cognicore/wormsner/pkg/wormsner/internalerr"
)

// Compression selects how the encoded trie is compressed on disk.
type Compression uint8

const (
	// CompressionNone stores the encoding as is.
	CompressionNone Compression = 0
	// CompressionZSTD favours size.
	CompressionZSTD Compression = 1
	// CompressionLZ4 favours load speed.
	CompressionLZ4 Compression = 2
)

// ParseCompression maps a configuration name to a Compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "zstd", "":
		return CompressionZSTD, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("%w: unknown compression %q", internalerr.ErrInvalidConfig, name)
	}
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZSTD:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// lz4MaxRatio bounds the expansion of an LZ4 block.
const lz4MaxRatio = 255

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

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// compress returns the payload and the compression actually applied. LZ4
// falls back to none when the data does not compress.
func compress(data []byte, c Compression) ([]byte, Compression, error) {
	switch c {
	case CompressionNone:
		return data, CompressionNone, nil
	case CompressionZSTD:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, nil), CompressionZSTD, nil
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 {
			return data, CompressionNone, nil
		}
		return buf[:n], CompressionLZ4, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown compression %d", internalerr.ErrInvalidConfig, c)
	}
}

func decompress(payload []byte, c Compression, rawLen int) ([]byte, error) {
	switch c {
	case CompressionNone:
		return payload, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		raw, err := dec.DecodeAll(payload, make([]byte, 0, min(rawLen, 1<<26)))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", internalerr.ErrInvalidIndex, err)
		}
		return raw, nil
	case CompressionLZ4:
		if rawLen > lz4MaxRatio*len(payload)+lz4MaxRatio {
			return nil, fmt.Errorf("%w: lz4 payload length %d out of range", internalerr.ErrInvalidIndex, rawLen)
		}
		raw := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", internalerr.ErrInvalidIndex, err)
		}
		return raw[:n], nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", internalerr.ErrInvalidIndex, c)
	}
}
