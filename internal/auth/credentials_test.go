package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPlainCredentials(t *testing.T) {
	var c PlainCredentials

	stored, err := c.Seal("pikachu")
	require.NoError(t, err)
	assert.Equal(t, "pikachu", stored)

	assert.True(t, c.Match(stored, "pikachu"))
	assert.False(t, c.Match(stored, "Pikachu"))
	assert.False(t, c.Match(stored, ""))

	_, err = c.Seal("")
	assert.Error(t, err)
}

func TestBcryptCredentials(t *testing.T) {
	c := BcryptCredentials{Cost: bcrypt.MinCost}

	stored, err := c.Seal("pikachu")
	require.NoError(t, err)
	assert.NotEqual(t, "pikachu", stored)

	assert.True(t, c.Match(stored, "pikachu"))
	assert.False(t, c.Match(stored, "raichu"))
	assert.False(t, c.Match("not-a-hash", "pikachu"))
}

func TestParseScheme(t *testing.T) {
	tests := []struct {
		name    string
		want    Credentials
		wantErr bool
	}{
		{"", PlainCredentials{}, false},
		{"plain", PlainCredentials{}, false},
		{" BCRYPT ", BcryptCredentials{}, false},
		{"md5", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseScheme(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.IsType(t, tt.want, got, tt.name)
	}
}
