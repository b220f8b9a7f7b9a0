package context

import "testing"

func TestClassify_Categories(t *testing.T) {
	c := NewClassifier()

	cases := []struct {
		text string
		want Category
	}{
		{"Let's discuss the architecture of the system", CategoryStrategic},
		{"The overall design approach looks solid", CategoryStrategic},
		{"I found a bug in the parser", CategoryDebug},
		{"Traceback (most recent call last):", CategoryDebug},
		{"def handle_request(self):", CategoryImplementation},
		{"import os", CategoryImplementation},
		{"thanks, that helps", CategoryChat},
		{"sounds good to me", CategoryChat},
	}

	for _, tc := range cases {
		if got := c.Classify(tc.text); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	c := NewClassifier()

	if got := c.Classify("ARCHITECTURE REVIEW"); got != CategoryStrategic {
		t.Errorf("uppercase strategic text classified as %s", got)
	}
	if got := c.Classify("ERROR: connection refused"); got != CategoryDebug {
		t.Errorf("uppercase debug text classified as %s", got)
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	c := NewClassifier()

	// Strategic beats debug beats implementation when keywords collide.
	if got := c.Classify("the design has a bug"); got != CategoryStrategic {
		t.Errorf("strategic+debug text classified as %s, want %s", got, CategoryStrategic)
	}
	if got := c.Classify("error in the function"); got != CategoryDebug {
		t.Errorf("debug+implementation text classified as %s, want %s", got, CategoryDebug)
	}
}

func TestClassify_SubstringMatch(t *testing.T) {
	c := NewClassifier()

	// Keyword matching is substring-based, not word-based.
	if got := c.Classify("the goalkeeper saved it"); got != CategoryStrategic {
		t.Errorf("substring 'goal' should classify as strategic, got %s", got)
	}
}
