package signature

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"bikerental/util/apperr"
)

func TestDecode_PlainBase64(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G'}
	out, err := Decode(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	require.Equal(t, raw, out)
}

func TestDecode_StripsDataURLPrefix(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	in := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
	out, err := Decode(in)
	require.NoError(t, err)
	require.Equal(t, raw, out)
}

func TestDecode_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "data:image/png;base64,"} {
		_, err := Decode(in)
		require.Error(t, err, "input %q", in)
		require.Equal(t, apperr.KindBadInput, apperr.KindOf(err))
	}
}

func TestDecode_InvalidBase64(t *testing.T) {
	_, err := Decode("not base64 at all!!")
	require.Error(t, err)
	require.Equal(t, apperr.KindBadInput, apperr.KindOf(err))
}
