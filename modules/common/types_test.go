package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenderIndex(t *testing.T) {
	assert.Equal(t, uint8(0), GenderMale.Index())
	assert.Equal(t, uint8(1), GenderFemale.Index())
	assert.Equal(t, uint8(2), GenderOther.Index())
}

func TestGenderValid(t *testing.T) {
	assert.True(t, GenderOther.Valid())
	assert.False(t, Gender("robot").Valid())
}

func TestNormalizeWallet(t *testing.T) {
	checksummed := "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
	assert.Equal(t, "0xab5801a7d398351b8be11c439e05c5b3259aec9b", NormalizeWallet(checksummed))
	assert.Equal(t, NormalizeWallet(checksummed), NormalizeWallet(" "+checksummed+" "))
}
