package monetization

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// EventKey scopes a client-supplied event identifier to the ad and hashes it
// to a fixed length. It returns "" when the client sent none: such reports
// are always recorded, since two viewers behind one address or one viewer
// seeing the same ad at two positions are separate events that look alike.
func EventKey(adID, clientKey string) string {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("client|%s|%s", adID, clientKey)))
	return hex.EncodeToString(sum[:])
}
