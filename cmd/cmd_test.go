package cmd

import (
	"strings"
	"testing"

	"github.com/homewarden/homewarden/internal/session"
)

func TestParseRateBurst(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 0},
		{"120", 120},
		{"-5", 0},
		{"abc", 0},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("HOMEWARDEN_RATE_BURST", tt.value)
			if got := parseRateBurst(); got != tt.want {
				t.Errorf("parseRateBurst() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"ask": false, "plan": false, "troubleshoot": false,
		"parts": false, "serve": false, "version": false,
	}
	for _, c := range rootCmd.Commands() {
		name := strings.Fields(c.Use)[0]
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestPromptAnswers(t *testing.T) {
	questions := []session.FollowupQuestion{
		{ID: "q1", Question: "Is the pilot light on?", Options: []string{"yes", "no"}},
		{ID: "q2", Question: "When was the filter last changed?"},
	}
	input := strings.NewReader("no\n  three months ago \n")

	answers, err := promptAnswers(input, questions)
	if err != nil {
		t.Fatalf("promptAnswers: %v", err)
	}
	if len(answers) != 2 {
		t.Fatalf("answers = %d", len(answers))
	}
	if answers[0].QuestionID != "q1" || answers[0].Answer != "no" {
		t.Errorf("first answer = %+v", answers[0])
	}
	if answers[1].Answer != "three months ago" {
		t.Errorf("second answer = %q, want trimmed text", answers[1].Answer)
	}
}
