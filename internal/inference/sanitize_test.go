package inference

import "testing"

func TestCleanCompletion(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		prompt string
		in     string
		want   string
	}{
		{
			name:   "drops echoed prompt",
			prompt: "Once upon a time",
			in:     "Once upon a time there was a queue.",
			want:   "there was a queue.",
		},
		{
			name: "removes closed think block",
			in:   "<think>internal</think>\nHello there",
			want: "Hello there",
		},
		{
			name: "removes unclosed think block tail",
			in:   "<think>internal only",
			want: "",
		},
		{
			name: "removes sentinel tokens",
			in:   "Answer<|im_end|><|endoftext|>",
			want: "Answer",
		},
		{
			name:   "keeps text that does not start with the prompt",
			prompt: "hello",
			in:     "All good.",
			want:   "All good.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := CleanCompletion(tc.prompt, tc.in)
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCountWords(t *testing.T) {
	t.Parallel()
	if got := CountWords("  one two\tthree\n"); got != 3 {
		t.Fatalf("CountWords = %d, want 3", got)
	}
	if got := CountWords(""); got != 0 {
		t.Fatalf("CountWords(empty) = %d, want 0", got)
	}
}
