package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartreceipts/pkg/nfce"
	"smartreceipts/pkg/store"
)

const receiptText = `SUPERMERCADO FESTVAL
CNPJ: 76.189.406/0001-99
TOTAL R$ 20,37
PIX`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseFromStdin(t *testing.T) {
	out, err := execute(t, receiptText, "parse", "-")
	require.NoError(t, err)

	var r nfce.Receipt
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "FESTVAL", r.StoreName)
	assert.InDelta(t, 20.37, r.TotalAmount, 1e-9)
	assert.Equal(t, receiptText, r.RawText)
}

func TestParseFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nota.txt")
	require.NoError(t, os.WriteFile(path, []byte(receiptText), 0o644))

	out, err := execute(t, "", "parse", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"cnpj": "76.189.406/0001-99"`)
}

func TestPreprocessWritesBinaryImage(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	src := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 30; x++ {
			src.Set(x, y, color.NRGBA{R: uint8(x * 8), G: 100, B: 50, A: 255})
		}
	}
	require.NoError(t, imaging.Save(src, in))

	stdout, err := execute(t, "", "preprocess", in, out, "--min-size", "40")
	require.NoError(t, err)
	assert.Contains(t, stdout, "(60x40)")

	img, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 60, img.Bounds().Dx())
}

func TestLocalStoreCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "receipts.db")
	t.Setenv("BOLT_PATH", dbPath)

	b, err := store.NewBolt(dbPath)
	require.NoError(t, err)
	r := nfce.Parse(receiptText)
	require.NoError(t, b.Save(context.Background(), &r))
	require.NoError(t, b.Close())

	out, err := execute(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "1\t\tFESTVAL\t20.37\t0 items")

	out, err = execute(t, "", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"storeName": "FESTVAL"`)

	out, err = execute(t, "", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 1")

	_, err = execute(t, "", "show", "1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = execute(t, "", "show", "zero")
	assert.Error(t, err)
}
