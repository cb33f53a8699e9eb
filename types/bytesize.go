package types

import "fmt"

// ByteSize renders a byte count using the usual KB/MB/GB suffixes, for
// stats logging.
type ByteSize float64

// Storage space terms.
const (
	_           = iota
	KB ByteSize = 1 << (10 * iota)
	MB
	GB
)

func (b ByteSize) String() string {
	switch {
	case b >= GB:
		return fmt.Sprintf("%.2f GB", b/GB)
	case b >= MB:
		return fmt.Sprintf("%.1f MB", b/MB)
	case b >= KB:
		return fmt.Sprintf("%.0f KB", b/KB)
	}
	return fmt.Sprintf("%.0f Bytes", float64(b))
}

// IntSet is a set of object/page numbers.
type IntSet map[int]bool

// StringSet is a set of strings.
type StringSet map[string]bool
