package netx

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMultipart_RepeatsFieldPerFile(t *testing.T) {
	body, ct, err := EncodeMultipart("files", []FilePart{
		{Name: "a.png", ContentType: "image/png", Data: []byte("png-bytes")},
		{Name: `we"ird.txt`, Data: []byte("text")},
	})
	require.NoError(t, err)

	mt, params, err := mime.ParseMediaType(ct)
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mt)

	r := multipart.NewReader(bytes.NewReader(body), params["boundary"])

	type got struct{ field, file, ct, data string }
	var parts []got
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(p)
		require.NoError(t, err)
		parts = append(parts, got{p.FormName(), p.FileName(), p.Header.Get("Content-Type"), string(data)})
	}

	require.Len(t, parts, 2)
	assert.Equal(t, got{"files", "a.png", "image/png", "png-bytes"}, parts[0])
	assert.Equal(t, "files", parts[1].field)
	assert.Equal(t, "application/octet-stream", parts[1].ct)
	assert.Equal(t, "text", parts[1].data)
}

func TestEncodeMultipart_Empty(t *testing.T) {
	body, ct, err := EncodeMultipart("files", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, ct)
	assert.NotEmpty(t, body)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"Username is already taken!"}`, "Username is already taken!"},
		{"error field", `{"success":false,"error":"bad request"}`, "bad request"},
		{"json without message", `{"status":400}`, ""},
		{"plain text", "  upstream down \n", "upstream down"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorMessage([]byte(tt.body)))
		})
	}
}
