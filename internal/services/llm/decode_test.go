package llm

import "testing"

func TestDecodeLLMJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}
	inputs := []string{
		`{"title":"Les pyramides"}`,
		"```json\n{\"title\":\"Les pyramides\"}\n```",
		"```\n{\"title\":\"Les pyramides\"}\n```",
		"Voici le script :\n{\"title\":\"Les pyramides\"}\nBonne lecture.",
	}
	for _, input := range inputs {
		var got payload
		if err := DecodeLLMJSON(input, &got); err != nil {
			t.Fatalf("DecodeLLMJSON(%q) returned error: %v", input, err)
		}
		if got.Title != "Les pyramides" {
			t.Fatalf("DecodeLLMJSON(%q) title = %q", input, got.Title)
		}
	}
}

func TestDecodeLLMJSONRejectsGarbage(t *testing.T) {
	var target map[string]any
	if err := DecodeLLMJSON("", &target); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if err := DecodeLLMJSON("no json here", &target); err == nil {
		t.Fatal("expected error for prose payload")
	}
}
