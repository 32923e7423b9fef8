package source

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tt := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{in: "1602334616", want: 1602334616},
		{in: "1602334616_create_operators", want: 1602334616},
		{in: " 42 ", want: 42},
		{in: "none", want: NilVersion},
		{in: "NONE", want: NilVersion},
		{in: "0", want: NilVersion},
		{in: "", wantErr: true},
		{in: "_name", wantErr: true},
		{in: "v1", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "9223372036854775808", wantErr: true},
	}
	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			v, err := ParseVersion(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidVersion))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestVersionOrdering(t *testing.T) {
	assert.Equal(t, -1, NilVersion.Compare(1))
	assert.Equal(t, 1, Version(1602335590).Compare(1602334616))
	assert.Equal(t, 0, Version(7).Compare(7))
	assert.True(t, NilVersion.IsNil())
	assert.Equal(t, "none", NilVersion.String())
	assert.Equal(t, "1602334616", Version(1602334616).String())
	assert.Equal(t, int64(1602334616), Version(1602334616).Int64())
}
