package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidUsername(t *testing.T) {
	assert.True(t, IsValidUsername("user"))
	assert.True(t, IsValidUsername("li.wei-01"))
	assert.False(t, IsValidUsername("ab"))
	assert.False(t, IsValidUsername("has space"))
	assert.False(t, IsValidUsername("123456789012345678901234567890123"))
}

func TestIsValidPassword(t *testing.T) {
	assert.True(t, IsValidPassword("user123"))
	assert.False(t, IsValidPassword("12345"))
}

func TestIsValidSecurityCode(t *testing.T) {
	assert.True(t, IsValidSecurityCode("sh.600000"))
	assert.False(t, IsValidSecurityCode("600000"))
	assert.False(t, IsValidSecurityCode("sh.60000a"))
}

type sample struct {
	Username string `validate:"required,username"`
	Password string `validate:"required,password"`
	Kind     string `validate:"oneof=buy sell"`
	Quantity int64  `validate:"gt=0"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{Username: "user", Password: "secret1", Kind: "buy", Quantity: 1}))

	err := Struct(sample{Username: "u", Password: "x", Kind: "hold", Quantity: 0})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "username must be")
		assert.Contains(t, err.Error(), "password must be at least 6")
		assert.Contains(t, err.Error(), "kind must be one of: buy sell")
		assert.Contains(t, err.Error(), "quantity must be greater than 0")
	}

	err = Struct(sample{Kind: "buy", Quantity: 1})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "username is required")
	}
}
