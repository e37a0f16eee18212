package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponse(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		want    *Response
		wantErr string
	}{
		{
			name: "success with per-stage data",
			in:   `{"success": true, "data": [{"info": {"npoints": 30}}, {}]}`,
			want: &Response{Success: true, Data: []map[string]any{{"info": map[string]any{"npoints": 30.0}}, {}}},
		},
		{
			name: "structured failure",
			in:   `{"success": false, "message": "reader_las: cannot open file"}`,
			want: &Response{Success: false, Message: "reader_las: cannot open file"},
		},
		{
			name: "single data object",
			in:   `{"success": true, "data": {"summary": 1}}`,
			want: &Response{Success: true, Data: []map[string]any{{"summary": 1.0}}},
		},
		{
			name: "null data",
			in:   "  {\"success\": true, \"data\": null}\n",
			want: &Response{Success: true},
		},
		{name: "missing success", in: `{"data": []}`, wantErr: "no success field"},
		{name: "not an object", in: `[true]`, wantErr: "not a JSON object"},
		{name: "empty", in: ``, wantErr: "not a JSON object"},
		{name: "truncated", in: `{"success": tr`, wantErr: "not valid JSON"},
		{name: "data of wrong shape", in: `{"success": true, "data": 3}`, wantErr: "answer data"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeResponse([]byte(tc.in))
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeInfo(t *testing.T) {
	info, err := DecodeInfo([]byte(`{"streamable": true, "read_points": true, "buffer": 5.5,
		"parallelizable": true, "parallelized": false, "R_API": false}`))
	require.NoError(t, err)
	assert.Equal(t, &Info{Streamable: true, ReadPoints: true, Buffer: 5.5, Parallelizable: true}, info)

	_, err = DecodeInfo([]byte("engine crashed"))
	assert.Error(t, err)
}

func TestDecodeLast_SkipsLogLines(t *testing.T) {
	out := []byte("loading plugins\nwarning: no spatial index\n{\"success\": true}\n")
	resp, err := decodeLast(out, DecodeResponse)
	require.NoError(t, err)
	assert.True(t, resp.Success)

	_, err = decodeLast([]byte("one\ntwo\n"), DecodeResponse)
	assert.Error(t, err)
}
