package common

import "strings"

// Gender matches the uint8 encoding the voting contract expects.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Index() uint8 {
	switch g {
	case GenderMale:
		return 0
	case GenderFemale:
		return 1
	default:
		return 2
	}
}

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// NormalizeWallet lowercases an 0x address so wallet lookups are
// case-insensitive. Checksummed and lowercased forms of the same address
// must hit the same document.
func NormalizeWallet(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
