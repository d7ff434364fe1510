package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"presscrawl/internal/article"
)

func TestNew_CapabilityFlag(t *testing.T) {
	t.Parallel()

	require.IsType(t, Identity{}, New(false, 10, nil))
	require.IsType(t, &Tagger{}, New(true, 10, zap.NewNop()))
}

func TestIdentity_LeavesArticleUntouched(t *testing.T) {
	t.Parallel()

	a := article.Article{Text: "some text"}
	require.NoError(t, Identity{}.Enrich(&a))
	require.Empty(t, a.POSTags)
	require.Empty(t, a.Keywords)
}

func TestTagger_Enrich(t *testing.T) {
	t.Parallel()

	e := New(true, 5, zap.NewNop())
	a := article.Article{
		SourceURL: "https://x.test/1",
		Text:      "The parliament passed the budget. The budget vote divided the parliament for weeks.",
	}
	require.NoError(t, e.Enrich(&a))

	require.NotEmpty(t, a.POSTags)
	for i, tag := range a.POSTags {
		require.Equal(t, i, tag.Ordinal, "ordinals must follow token order")
		require.NotEmpty(t, tag.Token)
		require.Equal(t, strings.ToLower(tag.Token), tag.Lemma)
	}

	require.NotEmpty(t, a.Keywords)
	require.LessOrEqual(t, len(a.Keywords), 5)
	require.Contains(t, a.Keywords, "budget")
}

func TestTagger_EmptyTextIsNoop(t *testing.T) {
	t.Parallel()

	e := New(true, 5, zap.NewNop())
	a := article.Article{Text: "   "}
	require.NoError(t, e.Enrich(&a))
	require.Empty(t, a.POSTags)
}

func TestTagger_SkipsOversizedText(t *testing.T) {
	t.Parallel()

	e := New(true, 5, zap.NewNop())
	a := article.Article{Text: strings.Repeat("wort ", maxTextBytes/4)}
	require.NoError(t, e.Enrich(&a))
	require.Empty(t, a.POSTags, "oversized text must pass through untagged")
}

func TestCoarsePOS(t *testing.T) {
	t.Parallel()

	require.Equal(t, "NOUN", coarsePOS("NNS"))
	require.Equal(t, "VERB", coarsePOS("VBD"))
	require.Equal(t, "ADJ", coarsePOS("JJR"))
	require.Equal(t, "DET", coarsePOS("DT"))
	require.Equal(t, "X", coarsePOS("SYM"))
}

func TestTopKeywords_DeterministicOrder(t *testing.T) {
	t.Parallel()

	counts := map[string]int{"beta": 2, "alpha": 2, "gamma": 5}
	require.Equal(t, []string{"gamma", "alpha", "beta"}, topKeywords(counts, 10))
	require.Equal(t, []string{"gamma"}, topKeywords(counts, 1))
	require.Nil(t, topKeywords(nil, 3))
}
