package git

import (
	"strings"
	"testing"
)

func TestBotIdentity(t *testing.T) {
	name, email := BotIdentity(12345, "swe-agent")
	if name != "swe-agent[bot]" {
		t.Fatalf("name = %q, want swe-agent[bot]", name)
	}
	if !strings.Contains(email, "12345+swe-agent[bot]@users.noreply.github.com") {
		t.Fatalf("email = %q, want app pattern", email)
	}
}

func TestBotIdentityDefaultName(t *testing.T) {
	name, email := BotIdentity(777, "")
	if name != "swe-agent[bot]" {
		t.Fatalf("name = %q, want default app name swe-agent[bot]", name)
	}
	if !strings.Contains(email, "777+swe-agent[bot]@users.noreply.github.com") {
		t.Fatalf("email = %q, want app pattern with default name", email)
	}
}
