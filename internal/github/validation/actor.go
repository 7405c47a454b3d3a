package validation

import (
	"strings"

	"github.com/google/go-github/v66/github"
)

// IsBot reports whether user is a bot account: GitHub's own Type="Bot"
// marker, or the "[bot]" login suffix GitHub App bots use.
func IsBot(user *github.User) bool {
	if user == nil {
		return false
	}

	if user.GetType() == "Bot" {
		return true
	}

	return strings.HasSuffix(user.GetLogin(), "[bot]")
}

// IsBotLogin is IsBot's login-only variant, for call sites that only have a
// username string (e.g. a webhook payload field) rather than a full User.
func IsBotLogin(login string) bool {
	return strings.HasSuffix(login, "[bot]")
}

// ShouldIgnoreActor reports whether user's comment should be ignored:
// either it is the app's own bot account commenting back on itself, or it
// is some other bot, both of which would otherwise risk a trigger loop.
func ShouldIgnoreActor(user *github.User, appBotLogin string) bool {
	if user == nil {
		return true
	}

	if user.GetLogin() == appBotLogin {
		return true
	}

	return IsBot(user)
}
