package source

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tt := []struct {
		name       string
		assertErr  require.ErrorAssertionFunc
		expectFile *File
	}{
		{
			name:      "1_foobar.up.sql",
			assertErr: require.NoError,
			expectFile: &File{
				Version:   1,
				Digits:    "1",
				Name:      "foobar",
				Direction: Up,
				Raw:       "1_foobar.up.sql",
			},
		},
		{
			name:      "1602334616_create_operators.down.sql",
			assertErr: require.NoError,
			expectFile: &File{
				Version:   1602334616,
				Digits:    "1602334616",
				Name:      "create_operators",
				Direction: Down,
				Raw:       "1602334616_create_operators.down.sql",
			},
		},
		{
			name:      "1_f-o_ob+ar.up.sql",
			assertErr: require.NoError,
			expectFile: &File{
				Version:   1,
				Digits:    "1",
				Name:      "f-o_ob+ar",
				Direction: Up,
				Raw:       "1_f-o_ob+ar.up.sql",
			},
		},
		{
			name:      "1_foobar.up.yaml",
			assertErr: require.Error,
		},
		{
			name:      "1_foobar.sideways.sql",
			assertErr: require.Error,
		},
		{
			name:      "foobar.up.sql",
			assertErr: require.Error,
		},
		{
			name:      "0_zero.up.sql",
			assertErr: require.Error,
		},
		{
			name:      "99999999999999999999_big.up.sql",
			assertErr: require.Error,
		},
	}

	for _, v := range tt {
		t.Run(v.name, func(t *testing.T) {
			f, err := Parse(v.name)
			v.assertErr(t, err)
			require.Equal(t, v.expectFile, f)
		})
	}
}

func TestParseNoMatch(t *testing.T) {
	_, err := Parse("embed.go")
	require.Equal(t, ErrParse, err)
}
