// Package selection picks which catalog sections a user sees next.
//
// Policies are pure: they receive the catalog order for one
// level/mode/language and the user's derived usage, and return ids. They never
// touch storage. An empty catalog slice is always ErrNoSections.
package selection

import (
	"errors"
	"math/rand/v2"
)

var ErrNoSections = errors.New("no sections available")

// Rand is the subset of *rand.Rand the policies need.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

type globalRand struct{}

func (globalRand) IntN(n int) int                     { return rand.IntN(n) }
func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// DefaultRand uses the process-wide generator.
var DefaultRand Rand = globalRand{}

// Input is everything a policy may look at.
type Input struct {
	// Ordered section ids for the target level/mode/language.
	Ordered []string
	// Assigned lists every primary assignment in the user's history, repeats included.
	Assigned []string
	// Offered lists sections shown as an option but not chosen.
	Offered []string
	// Anchor is used by pairing policies.
	Anchor Anchor
	// Count is the number of ids wanted; zero means the policy default.
	Count int
}

type Anchor struct {
	ID      string
	Ordered []string
}

type Result struct {
	IDs []string
	// AlreadySeen is set when every candidate had been assigned before.
	AlreadySeen bool
}

// First returns the first picked id.
func (r Result) First() string {
	if len(r.IDs) == 0 {
		return ""
	}
	return r.IDs[0]
}

type Policy interface {
	Select(in Input) (Result, error)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(in Input) (Result, error)

func (f PolicyFunc) Select(in Input) (Result, error) { return f(in) }

func toSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func orDefault(r Rand) Rand {
	if r == nil {
		return DefaultRand
	}
	return r
}
