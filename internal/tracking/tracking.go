// Package tracking generates the human-shareable report identifiers.
package tracking

import (
	"fmt"
	"math/rand"
	"regexp"
	"time"
)

// Pattern matches every number Generate can return.
var Pattern = regexp.MustCompile(`^CR\d{2}\d{2}-\d{4}$`)

// Generator produces CR{YY}{MM}-{RRRR} numbers. It does not check uniqueness;
// the unique index on reports.tracking_number does.
type Generator struct {
	now  func() time.Time
	intN func(n int) int
}

// NewGenerator uses the wall clock and the global random source.
func NewGenerator() *Generator {
	return &Generator{now: time.Now, intN: rand.Intn}
}

// NewGeneratorWith injects the clock and random source, for tests.
func NewGeneratorWith(now func() time.Time, intN func(n int) int) *Generator {
	return &Generator{now: now, intN: intN}
}

// Generate returns a new tracking number. Year and month are taken in UTC.
func (g *Generator) Generate() string {
	t := g.now().UTC()
	return fmt.Sprintf("CR%02d%02d-%04d", t.Year()%100, int(t.Month()), g.intN(10000))
}
