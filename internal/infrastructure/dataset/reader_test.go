package dataset

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molsim/internal/testutil"
	"github.com/turtacn/molsim/pkg/errors"
)

const mixedSMI = `smiles zinc_id
CCO mol1
not-a-molecule badid
CCC mol2 extra tokens ignored

lonely
c1ccccc1 mol3
`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestReadLibrary_SkipsBadLines(t *testing.T) {
	log := testutil.NewMockLogger()
	lib, err := NewReader(log).ReadFile(writeFile(t, "mixed.smi", []byte(mixedSMI)))
	require.NoError(t, err)

	assert.Equal(t, 3, lib.Len())
	assert.Equal(t, "mol1", lib.QueryID)
	_, ok := lib.Get("badid")
	assert.False(t, ok)

	ids := make([]string, 0, lib.Len())
	for _, r := range lib.Records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"mol1", "mol2", "mol3"}, ids)

	rec, ok := lib.Get("mol2")
	require.True(t, ok)
	assert.Equal(t, 4, rec.Line)
	assert.Equal(t, "CCC", rec.SMILES)

	require.Len(t, lib.Skipped, 3)
	assert.Equal(t, 3, lib.Skipped[0].Line)
	assert.Equal(t, "badid", lib.Skipped[0].ID)
	assert.Equal(t, 5, lib.Skipped[1].Line)
	assert.Equal(t, "blank line", lib.Skipped[1].Reason)
	assert.Equal(t, 6, lib.Skipped[2].Line)

	msg, ok := log.Find("warn", "dataset lines skipped")
	require.True(t, ok)
	v, _ := msg.FieldValue("skipped")
	assert.Equal(t, 3, v)
}

func TestReadLibrary_ToyInput(t *testing.T) {
	lib, err := ReadLibrary(writeFile(t, "toy.smi", []byte("smiles zinc_id\nCCO mol1\nCCC mol2\n")))
	require.NoError(t, err)
	assert.Equal(t, 2, lib.Len())
	assert.Empty(t, lib.Skipped)
}

func TestReadLibrary_HeaderOnlyAndEmpty(t *testing.T) {
	for name, content := range map[string]string{
		"header only": "smiles zinc_id\n",
		"empty":       "",
	} {
		t.Run(name, func(t *testing.T) {
			lib, err := ReadLibrary(writeFile(t, "x.smi", []byte(content)))
			require.NoError(t, err)
			assert.Equal(t, 0, lib.Len())
			assert.Empty(t, lib.QueryID)
		})
	}
}

func TestReadLibrary_HeaderIsNeverParsed(t *testing.T) {
	lib, err := ReadLibrary(writeFile(t, "x.smi", []byte("CCO mol0\nCCC mol1\n")))
	require.NoError(t, err)
	assert.Equal(t, 1, lib.Len())
	assert.Equal(t, "mol1", lib.QueryID)
}

func TestReadLibrary_CRLF(t *testing.T) {
	lib, err := ReadLibrary(writeFile(t, "x.smi", []byte("smiles id\r\nCCO mol1\r\nCCC mol2\r\n")))
	require.NoError(t, err)
	_, ok := lib.Get("mol2")
	assert.True(t, ok)
}

func TestReadLibrary_OverlongLineSkipped(t *testing.T) {
	var b strings.Builder
	b.WriteString("smiles id\nCCO mol1\n")
	b.WriteString(strings.Repeat("C", maxLineBytes+10))
	b.WriteString(" huge\nCCC mol2\nCCCC mol3")

	lib, err := NewReader(nil).Read(strings.NewReader(b.String()), "long.smi")
	require.NoError(t, err)

	assert.Equal(t, 3, lib.Len())
	rec, ok := lib.Get("mol2")
	require.True(t, ok)
	assert.Equal(t, 4, rec.Line)
	_, ok = lib.Get("mol3")
	assert.True(t, ok, "final line without newline is read")

	require.Len(t, lib.Skipped, 1)
	assert.Equal(t, 3, lib.Skipped[0].Line)
	assert.Contains(t, lib.Skipped[0].Reason, "line exceeds")
}

func TestReadLine_LengthBoundary(t *testing.T) {
	exact := strings.Repeat("C", maxLineBytes)
	br := bufio.NewReader(strings.NewReader(exact + "\r\n" + exact + "C\n"))

	line, tooLong, err := readLine(br, nil)
	require.NoError(t, err)
	assert.False(t, tooLong)
	assert.Len(t, line, maxLineBytes)

	line, tooLong, err = readLine(br, line[:0])
	require.NoError(t, err)
	assert.True(t, tooLong)
	assert.Empty(t, line)

	_, _, err = readLine(br, nil)
	assert.Equal(t, io.EOF, err)
}

func TestReadLibrary_Duplicates(t *testing.T) {
	lib, err := ReadLibrary(writeFile(t, "x.smi", []byte("h\nC a\nCC b\nCCC a\n")))
	require.NoError(t, err)
	assert.Equal(t, 2, lib.Len())
	assert.Equal(t, 1, lib.Duplicates)
	rec, _ := lib.Get("a")
	assert.Equal(t, "CCC", rec.SMILES)
	assert.Equal(t, "a", lib.Records[0].ID)
}

func TestReadLibrary_MissingFile(t *testing.T) {
	_, err := ReadLibrary(filepath.Join(t.TempDir(), "absent.smi"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDataSourceParseError))
}

func TestReadLibrary_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(mixedSMI))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	plain, err := ReadLibrary(writeFile(t, "plain.smi", []byte(mixedSMI)))
	require.NoError(t, err)
	packed, err := ReadLibrary(writeFile(t, "packed.smi.gz", buf.Bytes()))
	require.NoError(t, err)

	require.Equal(t, plain.Len(), packed.Len())
	for i := range plain.Records {
		assert.Equal(t, plain.Records[i].ID, packed.Records[i].ID)
		assert.Equal(t, plain.Records[i].SMILES, packed.Records[i].SMILES)
	}
	assert.Equal(t, len(plain.Skipped), len(packed.Skipped))
}

func TestReadLibrary_Zstd(t *testing.T) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write([]byte(mixedSMI))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	lib, err := ReadLibrary(writeFile(t, "packed.smi.zst", buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 3, lib.Len())
}

func TestReadLibrary_LZ4(t *testing.T) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	_, err := zw.Write([]byte(mixedSMI))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, kind, _, err := decompress(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, CompressionLZ4, kind)

	lib, err := ReadLibrary(writeFile(t, "packed.smi.lz4", buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 3, lib.Len())
	assert.Equal(t, "mol1", lib.QueryID)
}

func TestReadLibrary_CorruptGzip(t *testing.T) {
	_, err := ReadLibrary(writeFile(t, "bad.gz", []byte{0x1f, 0x8b, 0x00}))
	assert.Error(t, err)
}

func TestDecompress_Detection(t *testing.T) {
	_, kind, closeFn, err := decompress(strings.NewReader("smiles id\n"))
	require.NoError(t, err)
	closeFn()
	assert.Equal(t, CompressionNone, kind)

	_, kind, _, err = decompress(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, kind)
}
