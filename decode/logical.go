package decode

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

/*
Logical-type parsing. These operations turn an already-decoded physical
value into its richer logical interpretation. Malformed content (e.g. a
string that is not a UUID) is a decode-time error; whether a logical
annotation applies at all is the plan compiler's concern.
*/

////////////////////////////////////////////////////////////////////////////////

// ParseDecimal interprets buf as a big-endian two's complement unscaled
// integer and returns it divided by 10^scale. The precision argument is
// accepted for interface symmetry; the unscaled value is arbitrary
// precision regardless.
func ParseDecimal(buf []byte, _ int, scale int) *big.Rat {
	unscaled := new(big.Int).SetBytes(buf)
	if len(buf) > 0 && buf[0]&0x80 != 0 {
		unscaled.Sub(unscaled, new(big.Int).Lsh(big.NewInt(1), uint(len(buf)*8)))
	}
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
	return new(big.Rat).SetFrac(unscaled, denom)
}

// ParseUUID parses the textual UUID representation.
func ParseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("failed to parse uuid: %w", err)
	}
	return id, nil
}

// ParseDate converts days since the unix epoch to a UTC time at midnight.
func ParseDate(days int32) time.Time {
	return time.Unix(int64(days)*86400, 0).UTC()
}

// ParseTimeMillis converts milliseconds after midnight to a duration.
func ParseTimeMillis(ms int32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// ParseTimeMicros converts microseconds after midnight to a duration.
func ParseTimeMicros(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}

// ParseTimestampMillis converts milliseconds since the unix epoch to a
// UTC time.
func ParseTimestampMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ParseTimestampMicros converts microseconds since the unix epoch to a
// UTC time.
func ParseTimestampMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}
