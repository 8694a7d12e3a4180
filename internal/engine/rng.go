package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"math"
)

// Stream is a deterministic byte stream keyed by HMAC-SHA256(serverSeed,
// "client:nonce:round"). Every 32 bytes a new round block is generated.
// The physics engine draws all of its randomness from one Stream per spin,
// so the same seeds and nonce always replay the same spin.
type Stream struct {
	serverSeed   string
	clientSeed   string
	nonce        uint64
	currentRound uint64
	currentPos   int
	buffer       [32]byte
	drawn        uint64
}

// NewStream creates a stream positioned at the first byte of round 0.
func NewStream(seeds Seeds, nonce uint64) *Stream {
	return NewStreamAt(seeds, nonce, 0)
}

// NewStreamAt creates a stream positioned at the given byte cursor.
func NewStreamAt(seeds Seeds, nonce uint64, cursor uint64) *Stream {
	s := &Stream{
		serverSeed:   seeds.Server,
		clientSeed:   seeds.Client,
		nonce:        nonce,
		currentRound: cursor / 32,
		currentPos:   int(cursor % 32),
	}
	s.generateRound()
	return s
}

// Next returns the next byte of the stream.
func (s *Stream) Next() byte {
	if s.currentPos >= 32 {
		s.currentRound++
		s.currentPos = 0
		s.generateRound()
	}

	b := s.buffer[s.currentPos]
	s.currentPos++
	return b
}

// Float64 returns the next float in [0, 1), built from exactly 4 bytes.
func (s *Stream) Float64() float64 {
	var b [4]byte
	for i := range b {
		b[i] = s.Next()
	}
	s.drawn++
	return bytesToFloat(b)
}

// Drawn reports how many floats have been taken from the stream.
func (s *Stream) Drawn() uint64 {
	return s.drawn
}

func (s *Stream) generateRound() {
	h := hmac.New(sha256.New, []byte(s.serverSeed))
	message := fmt.Sprintf("%s:%d:%d", s.clientSeed, s.nonce, s.currentRound)
	h.Write([]byte(message))
	copy(s.buffer[:], h.Sum(nil))
}

// bytesToFloat converts exactly 4 bytes to a float64 in [0, 1).
func bytesToFloat(bytes [4]byte) float64 {
	result := 0.0
	for i, b := range bytes {
		divider := math.Pow(256, float64(i+1))
		result += float64(b) / divider
	}
	return result
}

// Floats generates count floats starting from the given byte cursor.
func Floats(seeds Seeds, nonce uint64, cursor uint64, count int) []float64 {
	s := NewStreamAt(seeds, nonce, cursor)
	floats := make([]float64, count)
	for i := 0; i < count; i++ {
		floats[i] = s.Float64()
	}
	return floats
}
