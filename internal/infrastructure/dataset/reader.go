package dataset

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/turtacn/molsim/internal/domain/molecule"
	"github.com/turtacn/molsim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molsim/pkg/errors"
)

// maxLineBytes bounds a single record. Longer lines are skipped.
const maxLineBytes = 1 << 20

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Compression identifies the encoding of a dataset file.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// Reader parses whitespace-separated SMILES files: a header line followed by
// "<smiles> <identifier> [ignored...]" records.
type Reader struct {
	logger logging.Logger
}

// NewReader creates a Reader. A nil logger discards output.
func NewReader(log logging.Logger) *Reader {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Reader{logger: log}
}

// ReadLibrary reads path with a Reader that does not log.
func ReadLibrary(path string) (*molecule.Library, error) {
	return NewReader(nil).ReadFile(path)
}

// ReadFile opens path, transparently decompressing gzip, zstd or lz4 content, and
// parses it. See Read.
func (r *Reader) ReadFile(path string) (*molecule.Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceParseError, "failed to open dataset").WithDetail(path)
	}
	defer f.Close()

	src, kind, closeFn, err := decompress(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceParseError, "failed to open compressed dataset").WithDetail(path)
	}
	defer closeFn()

	if kind != CompressionNone {
		r.logger.Debug("decompressing dataset", logging.String("path", path), logging.String("compression", string(kind)))
	}
	return r.Read(src, path)
}

// Read parses a dataset from src. The first line is a header and is
// discarded. Lines with fewer than two tokens or an unparsable SMILES are
// recorded in Library.Skipped and never abort the read, as are lines longer
// than 1 MiB. Only I/O failures are returned as errors.
func (r *Reader) Read(src io.Reader, source string) (*molecule.Library, error) {
	lib := molecule.NewLibrary(source)

	br := bufio.NewReaderSize(src, 64*1024)
	var buf []byte

	lineNo := 0
	for {
		line, tooLong, err := readLine(br, buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDataSourceParseError, "failed to read dataset").WithDetail(source)
		}
		buf = line[:0]

		lineNo++
		if lineNo == 1 {
			continue
		}
		if tooLong {
			lib.Skip(lineNo, "", fmt.Sprintf("line exceeds %d bytes", maxLineBytes))
			r.logger.Debug("skipping overlong line", logging.Int("line", lineNo))
			continue
		}

		tokens := strings.Fields(string(line))
		if len(tokens) < 2 {
			reason := "expected SMILES and identifier"
			if len(tokens) == 0 {
				reason = "blank line"
			}
			lib.Skip(lineNo, "", reason)
			continue
		}

		smiles, id := tokens[0], tokens[1]
		mol, err := molecule.ParseSMILES(smiles)
		if err != nil {
			lib.Skip(lineNo, id, err.Error())
			r.logger.Debug("skipping unparsable SMILES",
				logging.Int("line", lineNo),
				logging.String("id", id),
				logging.Err(err))
			continue
		}

		if !lib.Add(&molecule.MoleculeRecord{ID: id, SMILES: smiles, Line: lineNo, Molecule: mol}) {
			r.logger.Debug("duplicate identifier replaces earlier entry",
				logging.Int("line", lineNo), logging.String("id", id))
		}
	}

	if n := len(lib.Skipped); n > 0 {
		r.logger.Warn("dataset lines skipped",
			logging.String("source", source),
			logging.Int("skipped", n),
			logging.Int("parsed", lib.Len()))
	}
	return lib, nil
}

// readLine returns the next line without its terminator, reusing buf. A line
// longer than maxLineBytes is consumed to its end and returned empty with
// tooLong set. io.EOF is only returned once no bytes remain.
func readLine(br *bufio.Reader, buf []byte) (line []byte, tooLong bool, err error) {
	line = buf[:0]
	read := false
	for {
		chunk, err := br.ReadSlice('\n')
		read = read || len(chunk) > 0
		if !tooLong {
			line = append(line, chunk...)
			if len(bytes.TrimRight(line, "\r\n")) > maxLineBytes {
				tooLong, line = true, line[:0]
			}
		}
		switch {
		case err == bufio.ErrBufferFull:
			continue
		case err == io.EOF && read:
		case err != nil:
			return nil, false, err
		}
		return bytes.TrimRight(line, "\r\n"), tooLong, nil
	}
}

// decompress sniffs the leading magic bytes of src and wraps it in the
// matching decoder.
func decompress(src io.Reader) (io.Reader, Compression, func(), error) {
	br := bufio.NewReader(src)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, CompressionNone, func() {}, err
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, CompressionGzip, func() {}, err
		}
		return zr, CompressionGzip, func() { _ = zr.Close() }, nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, CompressionZstd, func() {}, err
		}
		return zr, CompressionZstd, zr.Close, nil
	case bytes.HasPrefix(head, lz4Magic):
		return lz4.NewReader(br), CompressionLZ4, func() {}, nil
	default:
		return br, CompressionNone, func() {}, nil
	}
}
