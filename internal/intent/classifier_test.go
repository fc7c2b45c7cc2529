package intent

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		score int
		want  Tier
	}{
		{"deep negative", -12, LikelyGhost},
		{"zero", 0, LikelyGhost},
		{"just below potential", 1, LikelyGhost},
		{"potential lower bound", 2, PotentialBuyer},
		{"potential upper bound", 6, PotentialBuyer},
		{"high intent lower bound", 7, HighIntentBuyer},
		{"well above", 40, HighIntentBuyer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.score)
			if got != tt.want {
				t.Errorf("Classify(%d) = %q, want %q", tt.score, got, tt.want)
			}
		})
	}
}

func TestClassify_Monotonic(t *testing.T) {
	rank := map[Tier]int{LikelyGhost: 0, PotentialBuyer: 1, HighIntentBuyer: 2}
	prev := rank[Classify(-20)]
	for s := -19; s <= 20; s++ {
		r := rank[Classify(s)]
		if r < prev {
			t.Fatalf("tier decreased at score %d", s)
		}
		prev = r
	}
}

func TestIsGhost(t *testing.T) {
	if !IsGhost(1) {
		t.Error("score 1 should be a ghost")
	}
	if IsGhost(2) {
		t.Error("score 2 should not be a ghost")
	}
}
