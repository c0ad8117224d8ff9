// Package id generates the prefixed identifiers used for every stored entity.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for each entity kind. An ID reads as "<prefix>-<nanoid>".
const (
	PrefixUser    = "user"
	PrefixSession = "session"
	PrefixBook    = "book"
	PrefixSection = "section"
	PrefixChapter = "chapter"
	PrefixTopic   = "topic"
	PrefixSlot    = "slot"
	PrefixTask    = "task"
	PrefixExam    = "exam"
	PrefixToken   = "token"
	PrefixClient  = "sse"
)

// Generate creates a prefixed NanoID such as "topic-V1StGXR8_Z5jdHi6B-myT".
// It fails only when the system entropy source does.
func Generate(prefix string) (string, error) {
	raw, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + raw, nil
}

// MustGenerate is like Generate but panics on failure.
// Use it in seeders and tests only.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return v
}
