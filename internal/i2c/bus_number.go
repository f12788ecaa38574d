package i2c

import (
	"path/filepath"
	"strconv"
	"strings"
)

// BusNumber extracts N from a /dev/i2c-N style path, or returns -1.
func BusNumber(path string) int {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "i2c-") {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimPrefix(base, "i2c-"))
	if err != nil || n < 0 {
		return -1
	}
	return n
}
