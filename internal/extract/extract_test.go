package extract_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilldocs/quill-api/internal/extract"
)

func TestExtractSupportedFormats(t *testing.T) {
	t.Parallel()

	x := extract.New()

	cases := []struct {
		name string
		mime string
		data string
	}{
		{"plain text", "text/plain", "hello world"},
		{"markdown", "text/markdown", "# Title\n\nBody."},
		{"csv", "text/csv", "a,b\n1,2"},
		{"json", "application/json", `{"key": "value"}`},
		{"xml", "application/xml", "<doc>hi</doc>"},
		{"mime with charset", "text/plain; charset=utf-8", "hello"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			text, err := x.Extract(context.Background(), []byte(tc.data), tc.mime)
			require.NoError(t, err)
			assert.Equal(t, tc.data, text)
		})
	}
}

func TestExtractStripsBOM(t *testing.T) {
	t.Parallel()

	x := extract.New()
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello")...)

	text, err := x.Extract(context.Background(), data, "text/plain")

	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestExtractRejectsBinaryFormats(t *testing.T) {
	t.Parallel()

	x := extract.New()

	for _, mimeType := range []string{
		"application/pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"image/png",
		"application/octet-stream",
		"",
	} {
		_, err := x.Extract(context.Background(), []byte("%PDF-1.4"), mimeType)

		var extractErr *extract.Error
		require.ErrorAs(t, err, &extractErr, "mime %q", mimeType)
		assert.Equal(t, mimeType, extractErr.MIMEType)
	}
}

func TestExtractRejectsEmptyDocument(t *testing.T) {
	t.Parallel()

	x := extract.New()

	for _, data := range [][]byte{nil, {}, []byte("   \n\t ")} {
		_, err := x.Extract(context.Background(), data, "text/plain")

		var extractErr *extract.Error
		assert.ErrorAs(t, err, &extractErr)
	}
}

func TestExtractRejectsInvalidUTF8(t *testing.T) {
	t.Parallel()

	x := extract.New()

	_, err := x.Extract(context.Background(), []byte{0xFF, 0xFE, 0x00}, "text/plain")

	var extractErr *extract.Error
	require.ErrorAs(t, err, &extractErr)
	assert.Contains(t, extractErr.Reason, "UTF-8")
}

func TestExtractHonorsContext(t *testing.T) {
	t.Parallel()

	x := extract.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := x.Extract(ctx, []byte("hello"), "text/plain")

	assert.True(t, errors.Is(err, context.Canceled))
}
