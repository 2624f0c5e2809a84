package app

import (
	"math/rand"
	"strconv"
	"sync"
	"time"
)

// MaxCodeAttempts bounds how many codes a registry draws before giving up.
const MaxCodeAttempts = 32

// CodeGenerator yields candidate 6-digit access codes.
type CodeGenerator func() string

// NewRandomCodeGenerator draws codes uniformly from [100000, 999999].
func NewRandomCodeGenerator() CodeGenerator {
	var mu sync.Mutex
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return strconv.Itoa(100000 + rnd.Intn(900000))
	}
}
