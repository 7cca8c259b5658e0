package mediastore

import (
	"regexp"
	"strings"
	"testing"
)

func TestObjectKeyShape(t *testing.T) {
	key := ObjectKey("user-1", "Lecture Week 3.MP3")
	if !strings.HasPrefix(key, "user-1/") {
		t.Fatalf("key %q not scoped to the user", key)
	}
	// {userID}/{unix-ms}-{6 char suffix}{ext}
	pattern := regexp.MustCompile(`^user-1/\d{13}-[0-9a-z]{6}\.mp3$`)
	if !pattern.MatchString(key) {
		t.Fatalf("key %q does not match expected shape", key)
	}
}

func TestObjectKeyMissingExtension(t *testing.T) {
	key := ObjectKey("u", "noext")
	if !strings.HasSuffix(key, ".bin") {
		t.Fatalf("key %q should fall back to .bin", key)
	}
}

func TestObjectKeyUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		key := ObjectKey("u", "a.wav")
		if seen[key] {
			t.Fatalf("duplicate key generated: %s", key)
		}
		seen[key] = true
	}
}
