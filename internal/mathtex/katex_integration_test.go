//go:build integration

package mathtex

import (
	"strings"
	"testing"
)

func TestKaTeX(t *testing.T) {
	t.Parallel()

	r, err := New(WithEngine(EngineKaTeX))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("renders display math", func(t *testing.T) {
		got := r.RenderExpression("x^2", true)
		if !strings.Contains(got, "katex") || strings.Contains(got, "katex-error") {
			t.Errorf("RenderExpression() = %q, want KaTeX markup", got)
		}
	})

	t.Run("malformed input yields marker", func(t *testing.T) {
		got := r.RenderExpression(`\frac{`, true)
		if !strings.Contains(got, "katex-error") {
			t.Errorf("RenderExpression() = %q, want error marker", got)
		}
	})
}
