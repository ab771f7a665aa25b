package images

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(t.TempDir(), "covers")
	require.NoError(t, err)
	return s
}

// pngBytes encodes a w x h gradient.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewStorage(t *testing.T) {
	t.Run("creates directory", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "nested")
		s, err := NewStorage(base, "covers")
		require.NoError(t, err)

		info, err := os.Stat(s.Dir())
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects empty arguments", func(t *testing.T) {
		_, err := NewStorage("", "covers")
		assert.ErrorContains(t, err, "base path cannot be empty")

		_, err = NewStorage(t.TempDir(), "")
		assert.ErrorContains(t, err, "subdirectory cannot be empty")
	})
}

func TestStorage_SaveGetDelete(t *testing.T) {
	s := newTestStorage(t)
	data := []byte("cover")

	require.NoError(t, s.Save("42-dune.jpg", data))
	assert.True(t, s.Exists("42-dune.jpg"))

	got, err := s.Get("42-dune.jpg")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	hash, err := s.Hash("42-dune.jpg")
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	require.NoError(t, s.Delete("42-dune.jpg"))
	assert.False(t, s.Exists("42-dune.jpg"))
	require.NoError(t, s.Delete("42-dune.jpg"), "deleting twice is fine")
}

func TestStorage_RejectsTraversal(t *testing.T) {
	s := newTestStorage(t)

	for _, name := range []string{"", "../x.jpg", "a/b.jpg", ".hidden"} {
		err := s.Save(name, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidName, name)
		assert.False(t, s.Exists(name))
	}

	_, err := s.Path("../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestStorage_RejectsEmptyData(t *testing.T) {
	s := newTestStorage(t)
	assert.Error(t, s.Save("1.jpg", nil))
}

func TestStorage_Concurrent(t *testing.T) {
	s := newTestStorage(t)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("%d.jpg", i)
			assert.NoError(t, s.Save(name, []byte(name)))
			got, err := s.Get(name)
			assert.NoError(t, err)
			assert.Equal(t, []byte(name), got)
		}(i)
	}
	wg.Wait()
}

func TestInspect(t *testing.T) {
	info, err := Inspect(pngBytes(t, 30, 20))
	require.NoError(t, err)
	assert.Equal(t, Info{Format: "png", Width: 30, Height: 20}, info)
	assert.Equal(t, ".png", Extension(info.Format))

	_, err = Inspect([]byte("<html>not an image</html>"))
	assert.Error(t, err)
}

func TestComputeBlurHash(t *testing.T) {
	hash, err := ComputeBlurHash(bytes.NewReader(pngBytes(t, 300, 450)))
	require.NoError(t, err)
	// 4x3 components encode to 4 + 2*4*3 characters.
	assert.Len(t, hash, 28)

	_, err = ComputeBlurHash(bytes.NewReader([]byte("nope")))
	assert.Error(t, err)
}

func TestThumbnail(t *testing.T) {
	wide := image.NewRGBA(image.Rect(0, 0, 640, 10))
	b := thumbnail(wide, 64).Bounds()
	assert.Equal(t, 64, b.Dx())
	assert.Equal(t, 1, b.Dy())

	small := image.NewRGBA(image.Rect(0, 0, 10, 10))
	assert.Same(t, small, thumbnail(small, 64))
}
