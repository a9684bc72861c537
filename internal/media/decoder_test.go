package media

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0xff}

	got, err := Validate("image/jpeg", "image/jpeg", payload)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	for _, declared := range []string{"image/png", "IMAGE/JPEG", "image/jpeg; charset=binary", ""} {
		_, err := Validate(declared, "image/jpeg", payload)
		require.Error(t, err, declared)
		assert.True(t, errors.Is(err, ErrRejectedMediaType))
		assert.Equal(t, "Invalid object type, expected 'image/jpeg'", err.Error())
	}
}

func multipartFile(t *testing.T, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="body"; filename="clip.wav"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	files := form.File["body"]
	require.Len(t, files, 1)
	return files[0]
}

func TestReadUpload(t *testing.T) {
	data := []byte("RIFF....WAVE")

	got, err := ReadUpload(multipartFile(t, "audio/wav", data), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = ReadUpload(multipartFile(t, "audio/x-wav", data), "audio/wav")
	assert.ErrorIs(t, err, ErrRejectedMediaType)

	_, err = ReadUpload(nil, "audio/wav")
	assert.Error(t, err)
}
