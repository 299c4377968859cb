package account

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

const (
	// MaxNicknameLen bounds user-chosen and derived nicknames alike.
	MaxNicknameLen = 20

	// nicknameSuffixRoom reserves space for the "_0000" collision suffix when
	// a nickname is derived rather than chosen.
	nicknameSuffixRoom = 5

	// deriveMaxAttempts bounds the random-suffix retry loop.
	deriveMaxAttempts = 10

	defaultNicknameBase = "reader"
)

// Nicknames allow unicode letters, ASCII digits, and underscore.
var nicknameAllowedRunes = regexp.MustCompile(`[\p{L}0-9_]+`)

// NicknameValid reports whether a user-chosen nickname satisfies the length
// and character-class rules.
func NicknameValid(nickname string) bool {
	if len([]rune(nickname)) < 2 || len([]rune(nickname)) > MaxNicknameLen {
		return false
	}
	return strings.Join(nicknameAllowedRunes.FindAllString(nickname, -1), "") == nickname
}

// deriveNickname produces a unique nickname from a free-form suggestion. The
// suggestion is reduced to its allowed characters and truncated with suffix
// room to spare; on collision a random four-digit suffix is appended and
// re-checked, a bounded number of times. The final fallback derives the suffix
// from the clock and is accepted without a re-check; the profiles.nickname
// UNIQUE constraint still backstops it at commit time.
func (s *Service) deriveNickname(ctx context.Context, suggested string) (string, error) {
	base := strings.Join(nicknameAllowedRunes.FindAllString(suggested, -1), "")
	if base == "" {
		base = defaultNicknameBase
	}

	runes := []rune(base)
	if len(runes) > MaxNicknameLen-nicknameSuffixRoom {
		runes = runes[:MaxNicknameLen-nicknameSuffixRoom]
	}
	base = string(runes)

	available, err := s.users.IsNicknameAvailable(ctx, base)
	if err != nil {
		return "", fmt.Errorf("checking nickname availability: %w", err)
	}
	if available {
		return base, nil
	}

	for range deriveMaxAttempts {
		n, err := rand.Int(rand.Reader, big.NewInt(10000))
		if err != nil {
			return "", fmt.Errorf("generating nickname suffix: %w", err)
		}
		candidate := fmt.Sprintf("%s_%04d", base, n.Int64())

		available, err := s.users.IsNicknameAvailable(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking nickname availability: %w", err)
		}
		if available {
			return candidate, nil
		}
	}

	return fmt.Sprintf("%s_%04d", base, time.Now().UnixNano()%10000), nil
}
