package chunker

import (
	"math/rand"
	"testing"
)

func BenchmarkSplit(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	text := randomText(r, 20000, false)

	for _, bc := range []struct {
		name string
		unit Unit
	}{
		{"runes", UnitRunes},
		{"graphemes", UnitGraphemes},
	} {
		b.Run(bc.name, func(b *testing.B) {
			c, err := New(DefaultMaxLen, WithUnit(bc.unit))
			if err != nil {
				b.Fatal(err)
			}
			b.SetBytes(int64(len(text)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = c.Split(text)
			}
		})
	}
}

func BenchmarkChunkText(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	text := randomText(r, 20000, true)
	c, err := New(DefaultMaxLen)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.ChunkText(text)
	}
}
