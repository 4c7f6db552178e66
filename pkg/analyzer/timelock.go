// Package analyzer derives the higher-level transaction facts (locktime
// classification, BIP68 relative timelocks, warnings) that sit above the
// raw consensus decoding in pkg/bitcoin.
package analyzer

// LocktimeType classifies an absolute nLockTime per Bitcoin's threshold:
// values below 500,000,000 are block heights, at or above are unix
// timestamps. Zero means the locktime is not enforced.
func LocktimeType(locktime uint32) string {
	if locktime == 0 {
		return "none"
	}
	if locktime < 500000000 {
		return "block_height"
	}
	return "unix_timestamp"
}

// RelativeTimelock is a decoded BIP68 per-input sequence field.
type RelativeTimelock struct {
	Enabled bool
	Type    string
	Value   uint32
}

// ParseRelativeTimelock decodes BIP68 from an input's sequence number: bit
// 31 disables relative locktime entirely, bit 22 selects time (512-second
// units) vs. block-count units, and the low 16 bits carry the value.
func ParseRelativeTimelock(sequence uint32) RelativeTimelock {
	if sequence&(1<<31) != 0 {
		return RelativeTimelock{Enabled: false}
	}

	if sequence&(1<<22) != 0 {
		return RelativeTimelock{Enabled: true, Type: "time", Value: (sequence & 0xffff) * 512}
	}
	return RelativeTimelock{Enabled: true, Type: "blocks", Value: sequence & 0xffff}
}

// IsRBFSignaling reports BIP125 opt-in replace-by-fee: any input sequence
// below 0xFFFFFFFE.
func IsRBFSignaling(sequences []uint32) bool {
	for _, seq := range sequences {
		if seq < 0xfffffffe {
			return true
		}
	}
	return false
}
