package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIsValidMAC tests the BSSID shape check used on nmcli output.
func TestIsValidMAC(t *testing.T) {
	valid := []string{
		"00:14:22:01:23:45",
		"AA:BB:CC:DD:EE:FF",
		"aa:bb:cc:dd:ee:ff",
	}
	for _, mac := range valid {
		assert.True(t, isValidMAC(mac), "mac %q", mac)
	}

	invalid := []string{
		"",
		"00:14:22:01:23",
		"00:14:22:01:23:45:67",
		"0:14:22:01:23:45",
		"GG:14:22:01:23:45",
		"00-14-22-01-23-45",
	}
	for _, mac := range invalid {
		assert.False(t, isValidMAC(mac), "mac %q", mac)
	}
}
