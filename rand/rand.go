//
// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package rand provides sources of randomness and the draws the noise
// mechanisms are built from.
//
// Each Source is an independent stream. The default stream is backed by
// crypto/rand; seeded streams exist for reproducible runs and tests and must
// not be used where the privacy guarantee matters.
package rand

import (
	"bufio"
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math"
	"math/bits"
	mathrand "math/rand/v2"
	"sync"

	log "github.com/golang/glog"
)

const bufferSize = 65536

// Source is a stream of uniformly random bytes together with the
// distributions sampled from it. A Source is safe for concurrent use.
type Source struct {
	bufLock sync.Mutex
	buf     io.Reader

	bitLock sync.Mutex
	bitBuf  uint8
	bitPos  int8
}

// NewSource returns a Source reading its randomness from r.
func NewSource(r io.Reader) *Source {
	return &Source{
		buf:    bufio.NewReaderSize(r, bufferSize),
		bitPos: math.MaxInt8,
	}
}

// NewSeededSource returns a deterministic Source driven by a ChaCha8 stream
// derived from seed.
func NewSeededSource(seed uint64) *Source {
	var s [32]byte
	binary.LittleEndian.PutUint64(s[:8], seed)
	return NewSource(mathrand.NewChaCha8(s))
}

var defaultSource = NewSource(cryptorand.Reader)

// Default returns the process-wide crypto/rand backed Source.
func Default() *Source {
	return defaultSource
}

func (s *Source) read(b []byte) {
	s.bufLock.Lock()
	defer s.bufLock.Unlock()
	if _, err := io.ReadFull(s.buf, b); err != nil {
		log.Fatalf("out of randomness, should never happen: %v", err)
	}
}

// U64 returns a uniformly random uint64.
func (s *Source) U64() uint64 {
	var r [8]uint8
	s.read(r[:])
	return binary.LittleEndian.Uint64(r[:])
}

// Uint64 is U64. It lets a Source back a math/rand/v2 generator.
func (s *Source) Uint64() uint64 {
	return s.U64()
}

// U8 returns a uniformly random uint8.
func (s *Source) U8() uint8 {
	var r [1]uint8
	s.read(r[:])
	return r[0]
}

// Boolean returns true or false with equal probability.
func (s *Source) Boolean() bool {
	s.bitLock.Lock()
	defer s.bitLock.Unlock()
	if s.bitPos > 7 { // Out of random bits.
		s.bitBuf = s.U8()
		s.bitPos = 0
	}
	res := s.bitBuf&(1<<s.bitPos) > 0
	s.bitPos++
	return res
}

// Sign returns +1.0 or -1.0 with equal probabilities.
func (s *Source) Sign() float64 {
	if s.Boolean() {
		return 1.0
	}
	return -1.0
}

// I63n returns an integer from the set {0,...,n-1} uniformly at random.
// The value of n must be positive.
func (s *Source) I63n(n int64) int64 {
	largestMultipleOfN := (math.MaxInt64 / n) * n
	for {
		// Draw random 64 bit sequence and set sign bit to 0.
		positiveRandomInteger := int64(s.U64()) & 0x7fffffffffffffff
		if positiveRandomInteger < largestMultipleOfN {
			return positiveRandomInteger % n
		}
	}
}

// Uniform returns a float64 from the interval (0,1] such that each float
// in the interval is returned with positive probability and the resulting
// distribution simulates a continuous uniform distribution on (0, 1].
func (s *Source) Uniform() float64 {
	i := s.U64() % (1 << 53)
	r := (1 + float64(i)/(1<<53)) / math.Pow(2, s.Geometric())
	// We want to avoid returning 0, since we're taking the log of the output.
	if r == 0 {
		return 1
	}
	return r
}

// Geometric returns a float64 that counts the number of Bernoulli trials until
// the first success for a success probability of 0.5.
func (s *Source) Geometric() float64 {
	// 1 plus the number of leading zeros from an infinite stream of random bits
	// follows the desired geometric distribution.
	b := 1
	var r uint8
	for r == 0 {
		r = s.U8()
		b += bits.LeadingZeros8(r)
	}
	return float64(b)
}

// U64 returns a uniformly random uint64 from the default Source.
func U64() uint64 { return defaultSource.U64() }

// Boolean returns true or false with equal probability from the default Source.
func Boolean() bool { return defaultSource.Boolean() }

// Sign returns ±1.0 from the default Source.
func Sign() float64 { return defaultSource.Sign() }

// I63n returns an integer from {0,...,n-1} drawn from the default Source.
func I63n(n int64) int64 { return defaultSource.I63n(n) }

// Uniform returns a float64 from (0,1] drawn from the default Source.
func Uniform() float64 { return defaultSource.Uniform() }

// Geometric returns a geometric sample with success probability 0.5 drawn
// from the default Source.
func Geometric() float64 { return defaultSource.Geometric() }
