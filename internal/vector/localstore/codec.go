package localstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/vector"
)

// Binary layout, little endian:
//
//	magic "SPVS" | u16 version | u32 dim | u32 count
//	per record: str id | dim*f32 embedding | i64 publishedAt unix
//	            str title | str summary | str sourceLink
//	str = u32 length + raw bytes
const (
	fileMagic    = "SPVS"
	codecVersion = 1
)

func encodeRecords(records []vector.Record, dim int) []byte {
	var buf bytes.Buffer
	buf.WriteString(fileMagic)
	writeU16(&buf, codecVersion)
	writeU32(&buf, uint32(dim))
	writeU32(&buf, uint32(len(records)))

	for _, rec := range records {
		writeString(&buf, rec.ID)
		for _, v := range rec.Embedding {
			writeU32(&buf, math.Float32bits(v))
		}
		writeI64(&buf, rec.Meta.PublishedAt.Unix())
		writeString(&buf, rec.Meta.Title)
		writeString(&buf, rec.Meta.Summary)
		writeString(&buf, rec.Meta.SourceLink)
	}
	return buf.Bytes()
}

func decodeRecords(data []byte, dim int) ([]vector.Record, error) {
	r := bytes.NewReader(data)

	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != fileMagic {
		return nil, fmt.Errorf("bad magic")
	}

	version, err := readU16(r)
	if err != nil {
		return nil, err
	}
	if version != codecVersion {
		return nil, fmt.Errorf("unsupported version %d", version)
	}

	fileDim, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if int(fileDim) != dim {
		return nil, fmt.Errorf("file dimension %d does not match configured %d", fileDim, dim)
	}

	count, err := readU32(r)
	if err != nil {
		return nil, err
	}

	records := make([]vector.Record, 0, count)
	for i := uint32(0); i < count; i++ {
		id, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		embedding := make([]float32, dim)
		for j := 0; j < dim; j++ {
			bits, err := readU32(r)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			embedding[j] = math.Float32frombits(bits)
		}

		publishedAt, err := readI64(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		title, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		summary, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		sourceLink, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		records = append(records, vector.Record{
			ID:        id,
			Embedding: embedding,
			Meta: vector.Metadata{
				PublishedAt: time.Unix(publishedAt, 0),
				Title:       title,
				Summary:     summary,
				SourceLink:  sourceLink,
			},
		})
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes", r.Len())
	}
	return records, nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeI64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readU16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("truncated file")
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("truncated file")
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readI64(r *bytes.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("truncated file")
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	if int(n) > r.Len() {
		return "", fmt.Errorf("string length %d exceeds remaining %d", n, r.Len())
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("truncated string")
	}
	return string(b), nil
}
