package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmerhub/marketplace-api/internal/metrics"
)

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryObjects) Put(_ context.Context, key, _ string, body []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = body
	return "mem://" + key, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, G: 100, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAllowList(t *testing.T) {
	tests := []struct {
		kind Kind
		file string
		want bool
	}{
		{KindImage, "tomato.JPG", true},
		{KindImage, "tomato.webp", true},
		{KindImage, "tomato.bmp", false},
		{KindVideo, "farm.mkv", true},
		{KindVideo, "farm.mp3", false},
		{KindAudio, "call.m4a", true},
		{KindAudio, "noext", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Allowed(tt.kind, tt.file), "%s %s", tt.kind, tt.file)
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Video")
	require.NoError(t, err)
	assert.Equal(t, KindVideo, k)

	_, err = ParseKind("document")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestUploadStoresUnderKindPrefix(t *testing.T) {
	objs := &memoryObjects{}
	u := NewUploader(objs, metrics.NewDiscardMetrics("test"))

	res, err := u.Upload(context.Background(), KindAudio, "song.MP3", strings.NewReader("ID3..."))
	require.NoError(t, err)
	assert.Equal(t, KindAudio, res.Kind)
	assert.Equal(t, int64(6), res.Size)
	assert.True(t, strings.HasPrefix(res.URL, "mem://audio/"))
	assert.True(t, strings.HasSuffix(res.URL, ".mp3"))
	assert.Len(t, objs.objects, 1)
}

func TestUploadRejects(t *testing.T) {
	u := NewUploader(&memoryObjects{}, metrics.NewDiscardMetrics("test"))

	_, err := u.Upload(context.Background(), KindImage, "virus.exe", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = u.Upload(context.Background(), KindImage, "empty.png", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = u.Upload(context.Background(), Kind("doc"), "a.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestUploadReducedResizesWideImages(t *testing.T) {
	objs := &memoryObjects{}
	u := NewUploader(objs, metrics.NewDiscardMetrics("test"))

	res, err := u.UploadReduced(context.Background(), "field.png", bytes.NewReader(pngBytes(t, 1600, 400)))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.URL, ".jpg"))

	stored := objs.objects[strings.TrimPrefix(res.URL, "mem://")]
	img, err := imaging.Decode(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, ReducedWidth, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestUploadReducedKeepsSmallImages(t *testing.T) {
	objs := &memoryObjects{}
	u := NewUploader(objs, metrics.NewDiscardMetrics("test"))

	res, err := u.UploadReduced(context.Background(), "leaf.png", bytes.NewReader(pngBytes(t, 300, 100)))
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(objs.objects[strings.TrimPrefix(res.URL, "mem://")]))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
}

// declaredPNG returns a 1x1 PNG whose header claims w x h pixels
func declaredPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	// IHDR data follows the 8 byte signature and the chunk length and type
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestUploadReducedRejectsOversizedDimensions(t *testing.T) {
	objs := &memoryObjects{}
	u := NewUploader(objs, metrics.NewDiscardMetrics("test"))

	_, err := u.UploadReduced(context.Background(), "huge.png", bytes.NewReader(declaredPNG(t, 50000, 50000)))
	assert.ErrorIs(t, err, ErrUndecodable)

	gif := []byte("GIF89a\x50\xc3\x50\xc3\x00\x00\x00")
	_, err = u.UploadReduced(context.Background(), "huge.gif", bytes.NewReader(gif))
	assert.ErrorIs(t, err, ErrUndecodable)

	assert.Empty(t, objs.objects)
}

func TestUploadReducedRejectsGarbage(t *testing.T) {
	u := NewUploader(&memoryObjects{}, metrics.NewDiscardMetrics("test"))
	_, err := u.UploadReduced(context.Background(), "fake.png", strings.NewReader("not an image"))
	assert.ErrorIs(t, err, ErrUndecodable)
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "/uploads/")

	url, err := store.Put(context.Background(), "image/abc.png", "image/png", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/image/abc.png", url)

	got, err := os.ReadFile(filepath.Join(dir, "image", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}

func TestS3StorePutsObject(t *testing.T) {
	var gotPath, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := NewS3Store(context.Background(), S3Options{
		Bucket:      "produce",
		Region:      "us-east-1",
		Endpoint:    srv.URL,
		AccessKeyID: "test",
		SecretKey:   "test",
	})
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "video/x.mp4", "video/mp4", []byte("frames"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/produce/video/x.mp4", url)
	assert.Equal(t, "/produce/video/x.mp4", gotPath)
	assert.Equal(t, "video/mp4", gotType)
	assert.Equal(t, "frames", string(gotBody))
}
