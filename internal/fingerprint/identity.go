package fingerprint

import (
	"encoding/json"
	"fmt"
)

// Identity identifies the file behind a path independent of its name.
// On POSIX systems Volume is the device and Index the inode, on Windows
// they hold the volume serial number and the 64 bit file index.
type Identity struct {
	Volume uint64
	Index  uint64
}

// Func computes the identity of a path, nil when it is unknown.
type Func func(path string) *Identity

// Equal reports whether two possibly unknown identities are the same.
// Two unknown identities compare equal.
func Equal(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (i Identity) String() string {
	return fmt.Sprintf("%d:%d", i.Volume, i.Index)
}

func (i Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint64{i.Volume, i.Index})
}

// UnmarshalJSON accepts [volume, index] and the split Windows form
// [volume, index_high, index_low].
func (i *Identity) UnmarshalJSON(data []byte) error {
	var parts []uint64
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("decode identity: %w", err)
	}
	switch len(parts) {
	case 2:
		i.Volume, i.Index = parts[0], parts[1]
	case 3:
		if parts[1] > 0xFFFFFFFF || parts[2] > 0xFFFFFFFF {
			return fmt.Errorf("file index halves out of range: %v", parts)
		}
		i.Volume, i.Index = parts[0], parts[1]<<32|parts[2]
	default:
		return fmt.Errorf("identity needs 2 or 3 elements, got %d", len(parts))
	}
	return nil
}
