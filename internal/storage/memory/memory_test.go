package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritikvr/GenieBazaar-backend/internal/storage"
)

func TestUploadAndGetURL(t *testing.T) {
	s := New("http://localhost:9000")

	result, err := s.Upload(context.Background(), &storage.UploadInput{
		Key:         "products/abc",
		ContentType: "image/png",
		Size:        4,
		Data:        strings.NewReader("data"),
	})
	require.NoError(t, err)
	assert.Equal(t, "products/abc", result.Key)
	assert.Equal(t, "http://localhost:9000/media/products/abc", result.URL)

	url, err := s.GetURL(context.Background(), "products/abc")
	require.NoError(t, err)
	assert.Equal(t, result.URL, url)
}

func TestDelete(t *testing.T) {
	s := New("http://localhost:9000")

	_, err := s.Upload(context.Background(), &storage.UploadInput{
		Key:  "avatar/u1",
		Data: strings.NewReader("x"),
	})
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(context.Background(), "avatar/u1"))
	assert.Equal(t, 0, s.Len())
}

func TestDelete_Missing(t *testing.T) {
	s := New("http://localhost:9000")
	assert.Error(t, s.Delete(context.Background(), "nope"))
}

func TestGetURL_Missing(t *testing.T) {
	s := New("http://localhost:9000")
	url, err := s.GetURL(context.Background(), "nope")
	assert.Empty(t, url)
	assert.Error(t, err)
}
