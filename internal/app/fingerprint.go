package app

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// orderFingerprint hashes the logically significant fields of a create-order
// request. Seat ids are sorted and the simulate flag is trimmed and
// lowercased so semantically identical requests fingerprint identically no
// matter how the client encoded them.
func orderFingerprint(attendeeID, eventID string, seatIDs []string, currency, holdID, simulate string) string {
	sorted := append([]string(nil), seatIDs...)
	sort.Strings(sorted)

	canonical := fmt.Sprintf("aid=%s|eid=%s|seats=%s|cur=%s|hold=%s|sim=%s",
		attendeeID,
		eventID,
		strings.Join(sorted, ","),
		currency,
		holdID,
		strings.ToLower(strings.TrimSpace(simulate)),
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// importFingerprint hashes an inventory upload: the filename, the target
// event and a digest of the raw bytes.
func importFingerprint(filename, eventID string, body []byte) string {
	bodySum := sha256.Sum256(body)
	canonical := fmt.Sprintf("%s|%s|%s", filename, eventID, hex.EncodeToString(bodySum[:]))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
