package bundle

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// Digest returns the hex BLAKE3 digest of an artifact body. A leading comment
// header is excluded, so regenerating an unchanged workflow yields the same
// digest.
func Digest(artifact string) string {
	body := artifact
	if strings.HasPrefix(artifact, "#") {
		if i := strings.Index(artifact, "\n\n"); i >= 0 {
			body = artifact[i+2:]
		}
	}
	sum := blake3.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}
