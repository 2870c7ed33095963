package text

import (
	"testing"

	"github.com/FocuswithJustin/annotext/core/errors"
)

func windowTexts(windows [][]*Span) [][]string {
	out := make([][]string, len(windows))
	for i, w := range windows {
		for _, s := range w {
			out[i] = append(out[i], s.Text())
		}
	}
	return out
}

func TestRolling(t *testing.T) {
	txt := New("a b c d e")
	l := MustLayer(Config{Name: "letters"})
	for i := 0; i < 5; i++ {
		if _, err := l.Add(2*i, 2*i+1, nil); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if err := txt.AddLayer(l); err != nil {
		t.Fatalf("AddLayer failed: %v", err)
	}

	tests := []struct {
		window, minPeriods int
		want               []string
	}{
		{3, 3, []string{"abc", "bcd", "cde"}},
		{3, 2, []string{"ab", "abc", "bcd", "cde", "de"}},
		{2, 1, []string{"a", "ab", "bc", "cd", "de", "e"}},
		{6, 6, nil},
	}
	for _, tt := range tests {
		r, err := l.Rolling(tt.window, tt.minPeriods, nil)
		if err != nil {
			t.Fatalf("Rolling(%d, %d) failed: %v", tt.window, tt.minPeriods, err)
		}
		var got []string
		for _, w := range windowTexts(r.Windows()) {
			s := ""
			for _, x := range w {
				s += x
			}
			got = append(got, s)
		}
		if len(got) != len(tt.want) {
			t.Errorf("Rolling(%d, %d) = %q, want %q", tt.window, tt.minPeriods, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Rolling(%d, %d)[%d] = %q, want %q", tt.window, tt.minPeriods, i, got[i], tt.want[i])
			}
		}
	}
}

func TestRollingRestartsAndStops(t *testing.T) {
	txt := newSampleText(t)
	words, _ := txt.Layer("words")
	r, err := words.Rolling(2, 0, nil)
	if err != nil {
		t.Fatalf("Rolling failed: %v", err)
	}
	if n := len(r.Windows()); n != 7 {
		t.Errorf("first pass has %d windows, want 7", n)
	}
	if n := len(r.Windows()); n != 7 {
		t.Errorf("second pass has %d windows, want 7", n)
	}
	count := 0
	for range r.All() {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Errorf("early break count = %d, want 3", count)
	}
}

func TestRollingInside(t *testing.T) {
	txt := newSampleText(t)
	words, _ := txt.Layer("words")
	sentences, _ := txt.Layer("sentences")
	r, err := words.Rolling(3, 3, sentences)
	if err != nil {
		t.Fatalf("Rolling failed: %v", err)
	}
	windows := r.Windows()
	if len(windows) != 4 {
		t.Fatalf("len(windows) = %d, want 4", len(windows))
	}
	for _, w := range windows {
		if w[0].Start() < 16 && w[len(w)-1].End() > 16 {
			t.Errorf("window %q crosses a sentence boundary", windowTexts([][]*Span{w})[0])
		}
	}
}

func TestRollingValidation(t *testing.T) {
	l := MustLayer(Config{Name: "x"})
	if _, err := l.Rolling(0, 0, nil); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Rolling(0) error = %v, want invalid input", err)
	}
	if _, err := l.Rolling(2, 3, nil); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Rolling(2, 3) error = %v, want invalid input", err)
	}
}
