package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pixcheckout-backend/pkg/config"
	"github.com/angelmondragon/pixcheckout-backend/pkg/security"
)

var cheap = config.PasswordConfig{
	ArgonMemoryKB:    8 * 1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifyAdminPassword(t *testing.T) {
	hash, err := security.HashPassword("painel-2026!", cheap)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := security.VerifyPassword("painel-2026!", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("painel-2025!", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordSaltsEachCall(t *testing.T) {
	a, err := security.HashPassword("same", cheap)
	require.NoError(t, err)
	b, err := security.HashPassword("same", cheap)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := security.HashPassword("", cheap)
	assert.Error(t, err)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"not-a-hash",
		"$bcrypt$v=19$m=8,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=8,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8,t=1,p=1$!!$a2V5",
	} {
		_, err := security.VerifyPassword("irrelevant", encoded)
		assert.ErrorIs(t, err, security.ErrInvalidHash, encoded)
	}
}

func TestParamsFromConfigClamps(t *testing.T) {
	p := security.ParamsFromConfig(config.PasswordConfig{})
	assert.Equal(t, uint32(8), p.Memory)
	assert.Equal(t, uint32(1), p.Time)
	assert.Equal(t, uint8(1), p.Parallelism)
	assert.Equal(t, uint32(8), p.SaltLen)
	assert.Equal(t, uint32(16), p.KeyLen)
}

func TestNeedsRehash(t *testing.T) {
	hash, err := security.HashPassword("painel", cheap)
	require.NoError(t, err)
	assert.False(t, security.NeedsRehash(hash, cheap))

	stronger := cheap
	stronger.ArgonTime = 3
	assert.True(t, security.NeedsRehash(hash, stronger))
	assert.True(t, security.NeedsRehash("garbage", cheap))
}

func TestEqualString(t *testing.T) {
	assert.True(t, security.EqualString("admin", "admin"))
	assert.False(t, security.EqualString("admin", "Admin"))
}
