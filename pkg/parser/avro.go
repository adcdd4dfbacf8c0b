package parser

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io"
	"math/big"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/strings"
)

var avroMagic = []byte("Obj\x01")

const (
	avroSyncSize = 16
	// avroValueColumn names the single column of a file whose schema is not
	// a record.
	avroValueColumn = "value"
)

// Block codecs of the object container format.
const (
	avroCodecNull    = "null"
	avroCodecDeflate = "deflate"
	avroCodecSnappy  = "snappy"
	avroCodecZstd    = "zstandard"
)

// AvroReassembler reads records from an Avro object container file. The file
// header is held until complete, then each data block is decoded as soon as
// its trailing sync marker arrives, so at most one block is pending between
// chunks. Columns come from the writer schema in field order; nested records
// and maps flatten into dotted names the way JSON objects do.
type AvroReassembler struct {
	opts    Options
	pending []byte

	header      bool
	codec       *goavro.Codec
	root        *avroNode
	compression string
	sync        [avroSyncSize]byte

	block []byte
	zstd  *zstd.Decoder

	cols  columnSet
	stats Stats
}

// NewAvroReassembler creates a reassembler for Avro object container files.
func NewAvroReassembler(opts Options) *AvroReassembler {
	if opts.MaxNestedDepth <= 0 {
		opts.MaxNestedDepth = defaultMaxNestedDepth
	}
	return &AvroReassembler{opts: opts, cols: newColumnSet(opts.MaxKeys)}
}

func (r *AvroReassembler) Feed(chunk []byte, emit EmitFunc) error {
	if len(chunk) == 0 {
		return nil
	}
	buf := append(r.pending, chunk...)

	pos := 0
	if !r.header {
		n, err := r.readHeader(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			r.pending = buf
			r.stats.PendingBytes = len(buf)
			return pendingLimit(len(buf), r.opts.MaxPendingBytes)
		}
		pos = n
	}
	for pos < len(buf) {
		n, err := r.readBlock(buf[pos:], emit)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		pos += n
	}

	r.pending = carry(buf, pos)
	r.stats.PendingBytes = len(r.pending)
	return pendingLimit(len(r.pending), r.opts.MaxPendingBytes)
}

// Finalize counts the records of a block cut short by the end of input as
// malformed. A header that never completed is a parse error.
func (r *AvroReassembler) Finalize(emit EmitFunc) error {
	defer r.release()
	if !r.header {
		if len(r.pending) == 0 {
			return nil
		}
		return errors.New(errors.KindParse, "truncated Avro header")
	}
	if len(r.pending) > 0 {
		d := avroDecoder{buf: r.pending}
		count, ok, _ := d.long()
		if !ok || count < 1 {
			count = 1
		}
		r.stats.MalformedRecords += count
	}
	return nil
}

func (r *AvroReassembler) Columns() []string { return r.cols.columns }

func (r *AvroReassembler) Stats() Stats { return r.stats }

func (r *AvroReassembler) release() {
	r.pending = nil
	r.stats.PendingBytes = 0
	r.block = nil
	if r.zstd != nil {
		r.zstd.Close()
		r.zstd = nil
	}
}

// readHeader returns the header length, or 0 while buf holds only part of it.
func (r *AvroReassembler) readHeader(buf []byte) (int, error) {
	if len(buf) < len(avroMagic) {
		if !bytes.HasPrefix(avroMagic, buf) {
			return 0, errors.New(errors.KindParse, "input is not an Avro object container file")
		}
		return 0, nil
	}
	if !bytes.HasPrefix(buf, avroMagic) {
		return 0, errors.New(errors.KindParse, "input is not an Avro object container file")
	}

	d := avroDecoder{buf: buf, pos: len(avroMagic)}
	meta, ok, err := d.metadata()
	if err != nil || !ok {
		return 0, err
	}
	sync, ok := d.take(avroSyncSize)
	if !ok {
		return 0, nil
	}
	n := d.pos

	ocf, err := goavro.NewOCFReader(bytes.NewReader(buf[:n]))
	if err != nil {
		return 0, errors.Wrap(err, errors.KindParse, "invalid Avro header")
	}
	root, err := parseAvroSchema(meta["avro.schema"])
	if err != nil {
		return 0, err
	}
	compression := string(meta["avro.codec"])
	switch compression {
	case "", avroCodecNull, avroCodecDeflate, avroCodecSnappy, avroCodecZstd:
	default:
		return 0, errors.Newf(errors.KindParse, "unsupported Avro codec %q", compression)
	}

	r.codec = ocf.Codec()
	r.root = root
	r.compression = compression
	copy(r.sync[:], sync)
	r.header = true

	if root.kind == avroRecord {
		r.registerFields("", root, 1)
	} else {
		r.register(avroValueColumn, root, 1)
	}
	return n, nil
}

// readBlock decodes one complete data block at the start of buf and returns
// its length, or 0 while the block is incomplete. Records of a block that
// fails to decompress or decode are counted as malformed.
func (r *AvroReassembler) readBlock(buf []byte, emit EmitFunc) (int, error) {
	d := avroDecoder{buf: buf}
	count, ok, err := d.long()
	if err != nil || !ok {
		return 0, err
	}
	size, ok, err := d.long()
	if err != nil || !ok {
		return 0, err
	}
	if count < 0 || size < 0 {
		return 0, errors.New(errors.KindParse, "malformed Avro block header").WithRecord(r.stats.Records)
	}
	data, ok := d.take(size)
	if !ok {
		return 0, nil
	}
	sync, ok := d.take(avroSyncSize)
	if !ok {
		return 0, nil
	}
	if !bytes.Equal(sync, r.sync[:]) {
		return 0, errors.New(errors.KindParse, "Avro block sync marker mismatch").WithRecord(r.stats.Records)
	}
	n := d.pos

	data, err = r.inflate(data)
	if err != nil {
		r.stats.MalformedRecords += count
		return n, nil
	}
	for i := int64(0); i < count; i++ {
		datum, rest, err := r.codec.NativeFromBinary(data)
		if err != nil {
			r.stats.MalformedRecords += count - i
			break
		}
		data = rest
		if err := r.emitDatum(datum, emit); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (r *AvroReassembler) inflate(data []byte) ([]byte, error) {
	switch r.compression {
	case "", avroCodecNull:
		return data, nil
	case avroCodecDeflate:
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		out := bytes.NewBuffer(r.block[:0])
		if _, err := io.Copy(out, fr); err != nil {
			return nil, err
		}
		r.block = out.Bytes()
		return r.block, nil
	case avroCodecSnappy:
		// The compressed bytes are followed by a CRC32 of the decoded block.
		if len(data) < 4 {
			return nil, fmt.Errorf("snappy block too short")
		}
		out, err := snappy.Decode(r.block[:cap(r.block)], data[:len(data)-4])
		if err != nil {
			return nil, err
		}
		r.block = out
		if crc32.ChecksumIEEE(out) != binary.BigEndian.Uint32(data[len(data)-4:]) {
			return nil, fmt.Errorf("snappy block checksum mismatch")
		}
		return out, nil
	case avroCodecZstd:
		if r.zstd == nil {
			dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
			if err != nil {
				return nil, err
			}
			r.zstd = dec
		}
		out, err := r.zstd.DecodeAll(data, r.block[:0])
		if err != nil {
			return nil, err
		}
		r.block = out
		return out, nil
	}
	return nil, fmt.Errorf("unsupported Avro codec %q", r.compression)
}

func (r *AvroReassembler) emitDatum(datum interface{}, emit EmitFunc) error {
	r.cols.begin()
	if r.root.kind == avroRecord {
		m, ok := datum.(map[string]interface{})
		if !ok {
			r.stats.MalformedRecords++
			return nil
		}
		r.walkFields("", r.root, m, 1)
	} else {
		r.walk(avroValueColumn, r.root, datum, 1)
	}
	rec := r.cols.record(r.stats.Records)
	r.stats.Records++
	return emit(rec)
}

// register adds the columns a value of schema n produces, mirroring walk.
// Map keys are only known from data and are added as they appear.
func (r *AvroReassembler) register(name string, n *avroNode, depth int) {
	n = n.optional()
	switch {
	case n.kind == avroRecord && depth < r.opts.MaxNestedDepth:
		r.registerFields(name, n, depth+1)
	case n.kind == avroMap && depth < r.opts.MaxNestedDepth:
	default:
		r.cols.add(name)
	}
}

func (r *AvroReassembler) registerFields(prefix string, n *avroNode, depth int) {
	for _, f := range n.fields {
		r.register(joinKey(prefix, f.name), f.node, depth)
	}
}

func (r *AvroReassembler) walkFields(prefix string, n *avroNode, m map[string]interface{}, depth int) {
	for _, f := range n.fields {
		r.walk(joinKey(prefix, f.name), f.node, m[f.name], depth)
	}
}

func (r *AvroReassembler) walk(name string, n *avroNode, v interface{}, depth int) {
	cs := &r.cols
	if v == nil {
		cs.set(name, nil, -1)
		return
	}

	switch n.kind {
	case avroUnion:
		if b, inner, ok := n.branchOf(v); ok {
			r.walk(name, b, inner, depth)
			return
		}
		cs.set(name, r.scalar(n, v), -1)
	case avroRecord, avroMap:
		m, ok := v.(map[string]interface{})
		switch {
		case !ok:
			cs.set(name, r.scalar(n, v), -1)
		case depth >= r.opts.MaxNestedDepth:
			cs.set(name, objectToken, -1)
		case n.kind == avroRecord:
			r.walkFields(name, n, m, depth+1)
		default:
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				r.walk(joinKey(name, k), n.items, m[k], depth+1)
			}
		}
	case avroArray:
		if a, ok := v.([]interface{}); ok {
			cs.setArray(name, len(a))
			return
		}
		cs.set(name, r.scalar(n, v), -1)
	default:
		cs.set(name, r.scalar(n, v), -1)
	}
}

// scalar renders a decoded primitive as a field token. Dates render as
// ISO-8601 so the type decoder recognizes them.
func (r *AvroReassembler) scalar(n *avroNode, v interface{}) []byte {
	cs := &r.cols
	start := len(cs.scratch)
	switch x := v.(type) {
	case string:
		return strings.StringToBytes(x)
	case bool:
		if x {
			return trueToken
		}
		return falseToken
	case []byte:
		if utf8.Valid(x) {
			return x
		}
		cs.scratch = append(cs.scratch, hex.EncodeToString(x)...)
	case int32:
		cs.scratch = strconv.AppendInt(cs.scratch, int64(x), 10)
	case int64:
		cs.scratch = strconv.AppendInt(cs.scratch, x, 10)
	case float32:
		cs.scratch = strconv.AppendFloat(cs.scratch, float64(x), 'g', -1, 32)
	case float64:
		cs.scratch = strconv.AppendFloat(cs.scratch, x, 'g', -1, 64)
	case time.Time:
		layout := time.RFC3339Nano
		if n.logical == "date" {
			layout = time.DateOnly
		}
		cs.scratch = x.UTC().AppendFormat(cs.scratch, layout)
	case time.Duration:
		cs.scratch = append(cs.scratch, x.String()...)
	case *big.Rat:
		cs.scratch = append(cs.scratch, x.FloatString(n.scale)...)
	default:
		cs.scratch = fmt.Append(cs.scratch, x)
	}
	return cs.token(start)
}

// avroDecoder reads the binary encoding of container framing. Each read
// reports ok=false when buf ends before the value does.
type avroDecoder struct {
	buf []byte
	pos int
}

// long reads a zig-zag varint.
func (d *avroDecoder) long() (int64, bool, error) {
	v, n := binary.Varint(d.buf[d.pos:])
	switch {
	case n == 0:
		return 0, false, nil
	case n < 0:
		return 0, false, errors.New(errors.KindParse, "malformed Avro varint")
	}
	d.pos += n
	return v, true, nil
}

func (d *avroDecoder) take(n int64) ([]byte, bool) {
	if n > int64(len(d.buf)-d.pos) {
		return nil, false
	}
	b := d.buf[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return b, true
}

func (d *avroDecoder) bytes() ([]byte, bool, error) {
	n, ok, err := d.long()
	if err != nil || !ok {
		return nil, ok, err
	}
	if n < 0 {
		return nil, false, errors.New(errors.KindParse, "negative Avro length")
	}
	b, ok := d.take(n)
	return b, ok, nil
}

// metadata reads the header's map of bytes values.
func (d *avroDecoder) metadata() (map[string][]byte, bool, error) {
	meta := make(map[string][]byte)
	for {
		count, ok, err := d.long()
		if err != nil || !ok {
			return nil, ok, err
		}
		if count == 0 {
			return meta, true, nil
		}
		if count < 0 {
			// A negative count is followed by the block size in bytes.
			count = -count
			if _, ok, err := d.long(); err != nil || !ok {
				return nil, ok, err
			}
		}
		for ; count > 0; count-- {
			k, ok, err := d.bytes()
			if err != nil || !ok {
				return nil, ok, err
			}
			v, ok, err := d.bytes()
			if err != nil || !ok {
				return nil, ok, err
			}
			meta[string(k)] = v
		}
	}
}
