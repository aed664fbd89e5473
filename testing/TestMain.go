package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// ensureTestMode keeps the binaries from dialing PostgreSQL, Redis or AMQP
// when their packages are imported under go test.
func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
		for key, value := range map[string]string{
			"CSRF_SECRET":     "test-csrf-secret",
			"NFC_LINK_SECRET": "test-nfc-link-secret-0123456789",
		} {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
