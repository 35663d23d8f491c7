package geocode

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
)

// AddressKey returns the SHA-256 hex of the raw address for cache lookup.
func AddressKey(address string) string {
	h := sha256.Sum256([]byte(address))
	return fmt.Sprintf("%x", h)
}

// ZipKey returns the cache key for a 5-digit zip code.
func ZipKey(zip string) string {
	return "zip_" + zip
}

// ReverseKey returns the cache key for a coordinate pair, with decimal
// points replaced so the key is a safe file name.
func ReverseKey(lat, lon float64) string {
	coords := strconv.FormatFloat(lat, 'f', -1, 64) + "_" + strconv.FormatFloat(lon, 'f', -1, 64)
	return "reverse_" + strings.ReplaceAll(coords, ".", "_")
}
