package id

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// Generator creates opaque identifiers.
type Generator interface {
	New() string
}

type RandomHex struct{}

func (RandomHex) New() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

type UUID struct{}

func (UUID) New() string {
	return uuid.NewString()
}

// Prefixed joins a fixed prefix to another generator's output, e.g. "session-<uuid>".
type Prefixed struct {
	Prefix string
	Gen    Generator
}

func (p Prefixed) New() string {
	gen := p.Gen
	if gen == nil {
		gen = UUID{}
	}
	return p.Prefix + "-" + gen.New()
}
