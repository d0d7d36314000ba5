package observability

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sync/atomic"
)

// PIILevel defines how much personal data survives in logs and errors.
type PIILevel string

const (
	// PIILevelNone redacts whole payloads.
	PIILevelNone PIILevel = "none"
	// PIILevelHashed replaces detected PII with a salted hash.
	PIILevelHashed PIILevel = "hashed"
	// PIILevelFull performs no sanitization.
	PIILevelFull PIILevel = "full"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	ipv4Pattern  = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// Sanitizer scrubs PII from provider payloads before they are logged or
// attached to errors.
type Sanitizer struct {
	level PIILevel
	salt  string
}

func NewSanitizer(level PIILevel, salt string) *Sanitizer {
	switch level {
	case PIILevelNone, PIILevelHashed, PIILevelFull:
	default:
		level = PIILevelHashed
	}
	return &Sanitizer{level: level, salt: salt}
}

// Sanitize applies the configured level to input.
func (s *Sanitizer) Sanitize(input string) string {
	if input == "" {
		return ""
	}
	switch s.level {
	case PIILevelNone:
		return "[REDACTED]"
	case PIILevelFull:
		return input
	default:
		return s.hashPII(input)
	}
}

func (s *Sanitizer) hashPII(input string) string {
	result := emailPattern.ReplaceAllStringFunc(input, func(match string) string {
		return fmt.Sprintf("[EMAIL:%s]", s.hash(match))
	})
	result = phonePattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[PHONE:%s]", s.hash(match))
	})
	return ipv4Pattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[IP:%s]", s.hash(match))
	})
}

func (s *Sanitizer) hash(data string) string {
	sum := sha256.Sum256([]byte(data + s.salt))
	return hex.EncodeToString(sum[:])[:8]
}

var defaultSanitizer atomic.Pointer[Sanitizer]

func init() {
	defaultSanitizer.Store(NewSanitizer(PIILevelHashed, ""))
}

// SetDefaultSanitizer replaces the process-wide sanitizer used by Sanitize.
func SetDefaultSanitizer(s *Sanitizer) {
	if s != nil {
		defaultSanitizer.Store(s)
	}
}

// Sanitize scrubs input with the process-wide sanitizer.
func Sanitize(input string) string {
	return defaultSanitizer.Load().Sanitize(input)
}
