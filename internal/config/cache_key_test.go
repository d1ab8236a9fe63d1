package config

import "testing"

func TestSessionKeysScopedPerUserAndTest(t *testing.T) {
	// A user may hold live sessions on two different tests at once;
	// cleaning one up must never touch the other's keys.
	keys := func(userID, testID string) []string {
		return []string{
			CacheKey.SessionAnswersKey(testID, userID),
			CacheKey.SessionStartKey(testID, userID),
			CacheKey.UserActiveTestKey(userID, testID),
		}
	}

	a := keys("user-1", "go-fundamentals")
	b := keys("user-1", "k8s-operations")
	for i := range a {
		if a[i] == b[i] {
			t.Fatalf("key %q shared across tests of the same user", a[i])
		}
	}
}
