package utils

import "math/rand"

const caseIDChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCaseID returns a 5-character alphanumeric case identifier used to
// reference individual history entries.
func GenerateCaseID() string {
	b := make([]byte, 5)
	for i := range b {
		b[i] = caseIDChars[rand.Intn(len(caseIDChars))]
	}
	return string(b)
}
