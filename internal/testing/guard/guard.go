package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("HOSTDESK_TEST_MODE") == "" {
			_ = os.Setenv("HOSTDESK_TEST_MODE", "1")
		}
	})
}
