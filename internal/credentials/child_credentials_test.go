package credentials

import (
	"strings"
	"testing"
)

func TestGenerateChildUsername(t *testing.T) {
	for i := 0; i < 50; i++ {
		username, err := GenerateChildUsername()
		if err != nil {
			t.Fatalf("GenerateChildUsername: %v", err)
		}

		parts := strings.Split(username, "-")
		if len(parts) != 2 {
			t.Fatalf("username %q is not adjective-noun", username)
		}
		if parts[0] == "" || parts[1] == "" {
			t.Fatalf("username %q has an empty part", username)
		}
	}
}

func TestGenerateChildPassword(t *testing.T) {
	passwords := make(map[string]bool)
	for i := 0; i < 100; i++ {
		password, err := GenerateChildPassword()
		if err != nil {
			t.Fatalf("GenerateChildPassword: %v", err)
		}
		if len(password) != 4 {
			t.Errorf("password %q has length %d, want 4", password, len(password))
		}
		passwords[password] = true
	}

	// 62^4 possibilities: a hundred draws should not all collide.
	if len(passwords) < 2 {
		t.Error("passwords show no randomness")
	}
}
