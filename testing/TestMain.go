package testing

import (
	"os"
	"sync"
	stdtesting "testing"

	"github.com/tourguide/tourguide-api/internal/app"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("TOURGUIDE_TEST_MODE", "1")
		if os.Getenv("ACCESS_TOKEN_SECRET") == "" {
			_ = os.Setenv("ACCESS_TOKEN_SECRET", "test-secret")
		}
		app.RefreshTestMode()
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
