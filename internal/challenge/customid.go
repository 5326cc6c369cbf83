// internal/challenge/customid.go
package challenge

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	AcceptPrefix = "accept_1v1"
	JoinPrefix   = "join_tournament"
)

const maxChannelName = 100

// CustomID builds a button id that carries the record it refers to.
func CustomID(prefix string, id int64) string {
	return prefix + ":" + strconv.FormatInt(id, 10)
}

// ParseCustomID splits a button id built by CustomID.
func ParseCustomID(customID string) (string, int64, error) {
	idx := strings.LastIndex(customID, ":")
	if idx <= 0 {
		return "", 0, errors.Errorf("malformed custom id %q", customID)
	}

	id, err := strconv.ParseInt(customID[idx+1:], 10, 64)
	if err != nil {
		return "", 0, errors.Wrapf(err, "malformed custom id %q", customID)
	}
	return customID[:idx], id, nil
}

// ChannelName returns a Discord-safe channel name for a challenge: 1v1-<name>[-platform][-game].
func ChannelName(creator, platform, game string) string {
	parts := []string{"1v1", creator}
	for _, p := range []string{platform, game} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return SanitizeChannelName(strings.Join(parts, "-"))
}

// SanitizeChannelName lowercases name and keeps only characters Discord accepts in channel names.
func SanitizeChannelName(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastDash = false
		case r == '-' || r == ' ':
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}

	out := strings.Trim(b.String(), "-")
	if len(out) > maxChannelName {
		out = strings.TrimRight(out[:maxChannelName], "-")
	}
	return out
}
