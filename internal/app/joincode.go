package app

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// codeAlphabet omits easily confused glyphs (0/O, 1/I/L) since players
// type codes from a projector screen.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// JoinCodeGenerator draws short human-typable codes from a fixed alphabet.
// Uniqueness among live sessions is enforced by the registry at reservation
// time, not here.
type JoinCodeGenerator struct {
	length int
}

func NewJoinCodeGenerator(length int) *JoinCodeGenerator {
	if length <= 0 {
		length = 6
	}
	return &JoinCodeGenerator{length: length}
}

func (g *JoinCodeGenerator) Generate() string {
	var b strings.Builder
	b.Grow(g.length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < g.length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken;
			// fall back to the first glyph rather than crash mid-request.
			n = big.NewInt(0)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String()
}

// NormalizeJoinCode canonicalizes user input; codes are case-insensitive.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
