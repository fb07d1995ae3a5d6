package certificates

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

const suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateNumber builds a display certificate number: the course-number
// prefix (text before the first dash, "000" when absent), the issue date,
// and four random characters. Presentation-only; collisions are unlikely
// but callers must not treat it as a key.
func GenerateNumber(courseNumber string, at time.Time) string {
	prefix := strings.SplitN(strings.TrimSpace(courseNumber), "-", 2)[0]
	if prefix == "" {
		prefix = "000"
	}

	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), randomSuffix(4))
}

func randomSuffix(n int) string {
	b := make([]byte, n)
	// rand.Read never fails on supported platforms.
	_, _ = rand.Read(b)

	out := make([]byte, n)
	for i, v := range b {
		out[i] = suffixAlphabet[int(v)%len(suffixAlphabet)]
	}

	return string(out)
}
