package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStrongPassword(t *testing.T) {
	assert.True(t, isStrongPassword("abc12345!"))
	assert.True(t, isStrongPassword("Secret@2024"))
	assert.False(t, isStrongPassword("abcdefgh"), "no digit or special")
	assert.False(t, isStrongPassword("abc12345"), "no special")
	assert.False(t, isStrongPassword("12345678@"), "no letter")
	assert.False(t, isStrongPassword("abc 1234!"), "space is outside the charset")
}

func TestValidateStruct_RegisterInput(t *testing.T) {
	v := newValidator()

	err := validateStruct(v, RegisterInput{Name: "Ana Souza", Email: "ana@example.com", Password: "abc12345!"})
	assert.NoError(t, err)

	err = validateStruct(v, RegisterInput{Name: "A", Email: "not-an-email", Password: "short"})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
}

func TestValidateStruct_PersonName(t *testing.T) {
	v := newValidator()

	err := validateStruct(v, RegisterInput{Name: "João da Silva", Email: "joao@example.com", Password: "abc12345!"})
	assert.NoError(t, err)

	err = validateStruct(v, RegisterInput{Name: "R2D2", Email: "r2@example.com", Password: "abc12345!"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must contain only letters and spaces", verr.Fields["name"])
}
