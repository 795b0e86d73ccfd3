package library

import (
	"fmt"
	"math/rand"
	"time"
)

// Clock supplies the current time. Tests inject a fixed clock so due dates
// and generated ids are deterministic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// RandSource supplies the random suffix for generated identifiers.
type RandSource interface {
	Intn(n int) int
}

type seededRand struct {
	r *rand.Rand
}

func (s *seededRand) Intn(n int) int { return s.r.Intn(n) }

// NewRandSource returns a time-seeded RandSource.
func NewRandSource() RandSource {
	return &seededRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

const collectionIDPrefix = "TS"

// collectionID builds a catalog identifier: fixed prefix, second-resolution
// timestamp, random 3-digit suffix. Collisions are not checked; the
// remaining risk is accepted as vanishingly small.
func collectionID(clock Clock, rnd RandSource) string {
	return fmt.Sprintf("%s%s%03d", collectionIDPrefix, clock.Now().Format("20060102150405"), rnd.Intn(1000))
}

// loanID builds a loan identifier from a millisecond timestamp and a random
// 3-digit suffix.
func loanID(clock Clock, rnd RandSource) string {
	return fmt.Sprintf("BR%d%03d", clock.Now().UnixMilli(), rnd.Intn(1000))
}
