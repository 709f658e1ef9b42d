package utils

import (
	"testing"
)

func TestParseAIJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]interface{}
		wantErr bool
	}{
		{
			name:  "Pure JSON",
			input: `{"location": "Austin", "maxPrice": 400000}`,
			want: map[string]interface{}{
				"location": "Austin",
				"maxPrice": float64(400000),
			},
		},
		{
			name:  "JSON in markdown code block",
			input: "```json\n" + `{"location": "Denver", "minBedrooms": 3}` + "\n```",
			want: map[string]interface{}{
				"location":    "Denver",
				"minBedrooms": float64(3),
			},
		},
		{
			name:  "JSON with surrounding text",
			input: `Searching now: {"location": "Nashville, TN", "maxPrice": 700000} one moment.`,
			want: map[string]interface{}{
				"location": "Nashville, TN",
				"maxPrice": float64(700000),
			},
		},
		{
			name:  "JSON with trailing comma",
			input: `{"location": "Austin", "maxPrice": 400000,}`,
			want: map[string]interface{}{
				"location": "Austin",
				"maxPrice": float64(400000),
			},
		},
		{
			name:  "JSON with unquoted keys",
			input: `{location: "Austin", maxPrice: 400000}`,
			want: map[string]interface{}{
				"location": "Austin",
				"maxPrice": float64(400000),
			},
		},
		{
			name:  "JSON with single quotes",
			input: `{'location': 'Austin', 'propertyType': 'condo'}`,
			want: map[string]interface{}{
				"location":     "Austin",
				"propertyType": "condo",
			},
		},
		{
			name:    "Empty string",
			input:   "  ",
			wantErr: true,
		},
		{
			name:    "Invalid JSON",
			input:   "not json at all",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]interface{}
			err := ParseAIJSON(tt.input, &got)

			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAIJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseAIJSON() got = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("ParseAIJSON()[%q] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestExtractTaggedBlock(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		tag       string
		want      string
		wantFound bool
	}{
		{
			name:      "Block in prose",
			input:     "Great, let me look.\n<property_search>\n{\"location\": \"Austin\"}\n</property_search>\nOne sec!",
			tag:       "property_search",
			want:      "\n{\"location\": \"Austin\"}\n",
			wantFound: true,
		},
		{
			name:      "First block wins",
			input:     "<property_search>a</property_search><property_search>b</property_search>",
			tag:       "property_search",
			want:      "a",
			wantFound: true,
		},
		{
			name:      "Unclosed block",
			input:     "<property_search>{\"location\": \"Austin\"}",
			tag:       "property_search",
			wantFound: false,
		},
		{
			name:      "No block",
			input:     "What is your budget?",
			tag:       "property_search",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractTaggedBlock(tt.input, tt.tag)
			if found != tt.wantFound {
				t.Fatalf("ExtractTaggedBlock() found = %v, want %v", found, tt.wantFound)
			}
			if got != tt.want {
				t.Errorf("ExtractTaggedBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContainsTag(t *testing.T) {
	if !ContainsTag("text <property_search>{", "property_search") {
		t.Error("expected opening tag to be detected")
	}
	if ContainsTag("text property_search", "property_search") {
		t.Error("bare word must not count as a tag")
	}
}

func TestExtractFromMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "JSON code block with json tag",
			input: "```json\n{\"test\": true}\n```",
			want:  `{"test": true}`,
		},
		{
			name:  "JSON code block without tag",
			input: "```\n{\"test\": true}\n```",
			want:  `{"test": true}`,
		},
		{
			name:  "Non-JSON code block",
			input: "```\nplain text\n```",
			want:  "",
		},
		{
			name:  "No code block",
			input: `{"test": true}`,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractFromMarkdown(tt.input)
			if got != tt.want {
				t.Errorf("extractFromMarkdown() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractBalancedBraces(t *testing.T) {
	tests := []struct {
		name  string
		input string
		open  rune
		close rune
		want  string
	}{
		{
			name:  "Simple object",
			input: `{"a": 1}`,
			open:  '{',
			close: '}',
			want:  `{"a": 1}`,
		},
		{
			name:  "Nested objects",
			input: `{"a": {"b": 2}} trailing`,
			open:  '{',
			close: '}',
			want:  `{"a": {"b": 2}}`,
		},
		{
			name:  "Object with string containing braces",
			input: `{"text": "Hello {world}"}`,
			open:  '{',
			close: '}',
			want:  `{"text": "Hello {world}"}`,
		},
		{
			name:  "Unbalanced",
			input: `{"a": 1`,
			open:  '{',
			close: '}',
			want:  "",
		},
		{
			name:  "Array",
			input: `[1, 2, 3]`,
			open:  '[',
			close: ']',
			want:  `[1, 2, 3]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractBalancedBraces(tt.input, tt.open, tt.close)
			if got != tt.want {
				t.Errorf("extractBalancedBraces() = %v, want %v", got, tt.want)
			}
		})
	}
}
