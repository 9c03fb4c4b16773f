package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *UploadStorage {
	t.Helper()
	s, err := NewUploadStorage(t.TempDir(), 1024, 512)
	require.NoError(t, err)
	return s
}

func TestValidateDocument(t *testing.T) {
	s := newTestStorage(t)

	assert.NoError(t, s.ValidateDocument("syllabus.pdf", 100))
	assert.NoError(t, s.ValidateDocument("NOTES.DOCX", 100))
	assert.Error(t, s.ValidateDocument("malware.exe", 100))
	assert.Error(t, s.ValidateDocument("syllabus.pdf", 0))
	assert.Error(t, s.ValidateDocument("syllabus.pdf", 2048))
}

func TestValidateImage(t *testing.T) {
	s := newTestStorage(t)

	assert.NoError(t, s.ValidateImage("cert.jpg", 100))
	assert.NoError(t, s.ValidateImage("cert.PNG", 100))
	assert.Error(t, s.ValidateImage("cert.pdf", 100))
	assert.Error(t, s.ValidateImage("cert.jpg", 1024))
}

func TestSaveStreamRoundtrip(t *testing.T) {
	s := newTestStorage(t)

	rel, err := s.SaveStream("courses/5", "syllabus.pdf", strings.NewReader("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "courses/5/"))
	assert.True(t, strings.HasSuffix(rel, ".pdf"))
	assert.True(t, s.Exists(rel))

	file, err := s.Open(rel)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(body))
}

func TestSaveStreamUniqueNames(t *testing.T) {
	s := newTestStorage(t)

	first, err := s.SaveStream("certs", "scan.jpg", strings.NewReader("a"))
	require.NoError(t, err)
	second, err := s.SaveStream("certs", "scan.jpg", strings.NewReader("b"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestDelete(t *testing.T) {
	s := newTestStorage(t)

	rel, err := s.SaveStream("courses/5", "notes.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(rel))
	assert.False(t, s.Exists(rel))

	// Deleting a missing or empty path is not an error.
	require.NoError(t, s.Delete(rel))
	require.NoError(t, s.Delete(""))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("a.pdf"))
	assert.Equal(t, "image/png", ContentType("b.PNG"))
	assert.Equal(t, "application/octet-stream", ContentType("c.zip"))
}
