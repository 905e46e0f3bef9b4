package memory

import (
	"context"
	"testing"
)

func TestKeywordExtractor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		want    []Fact
	}{
		{
			name:    "profile name",
			message: "Hi, my name is Alice.",
			want:    []Fact{{Section: SectionProfile, Key: "name", Value: "Alice"}},
		},
		{
			name:    "profile occupation and location",
			message: "I work as a nurse and I'm from Lisbon",
			want: []Fact{
				{Section: SectionProfile, Key: "occupation", Value: "a nurse and I'm from Lisbon"},
				{Section: SectionProfile, Key: "location", Value: "Lisbon"},
			},
		},
		{
			name:    "preference",
			message: "I prefer morning meetings, if possible",
			want: []Fact{
				{Section: SectionPreferences, Key: "morning_meetings", Value: "i prefer morning meetings"},
			},
		},
		{
			name:    "instruction at message start",
			message: "Always reply in French.",
			want: []Fact{
				{Section: SectionInstructions, Key: "reply_in_french", Value: "always reply in French"},
			},
		},
		{
			name:    "instruction keyword mid-sentence is ignored",
			message: "They never showed up to the meeting",
			want:    nil,
		},
		{
			name:    "plain question yields nothing",
			message: "What's on my calendar tomorrow?",
			want:    nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := KeywordExtractor{}.Extract(context.Background(), tt.message)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d facts, got %d: %+v", len(tt.want), len(got), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("fact %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}
