package bot

import (
	"strings"

	"github.com/keepmind9/slashkit/pkg/constants"
)

// maskToken hides a bot token for logging. The first dot-separated segment
// only encodes the bot user id and is kept when present.
func maskToken(token string) string {
	token = strings.TrimPrefix(token, "Bot ")
	if len(token) <= constants.MinTokenLengthForMasking {
		return "***"
	}
	suffix := token[len(token)-constants.TokenMaskSuffixLength:]
	if head, rest, ok := strings.Cut(token, "."); ok && head != "" && len(rest) > constants.TokenMaskSuffixLength {
		return head + ".***" + suffix
	}
	return token[:constants.TokenMaskPrefixLength] + "***" + suffix
}
