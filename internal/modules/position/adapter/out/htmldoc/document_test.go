package htmldoc_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgrind/internal/modules/position/adapter/out/htmldoc"
	apperrors "docgrind/internal/platform/errors"
)

const page = `---
title: Closures
difficulty: technical
---
<html><head><title>x</title><style>p{}</style></head><body><article class="main-page-content"><h1 id="intro">Closures</h1><p>one two three</p><pre><code>let a = 1
let b = 2</code></pre><img src="d.png" alt="scope diagram"></article></body></html>`

func parse(t *testing.T) *htmldoc.Document {
	t.Helper()
	doc, err := htmldoc.Parse(strings.NewReader(page), htmldoc.DefaultLayout())
	require.NoError(t, err)
	return doc
}

func TestParseLaysOutBlocksInOrder(t *testing.T) {
	t.Parallel()
	doc := parse(t)
	assert.Equal(t, "Closures", doc.Title())
	assert.Equal(t, "technical", doc.Meta().Difficulty)

	nodes, err := doc.Query("article.main-page-content", []string{"h1, p", "pre", "code", "img"})
	require.NoError(t, err)
	require.Len(t, nodes, 5)

	tags := make([]string, 0, len(nodes))
	for _, n := range nodes {
		tags = append(tags, n.Tag())
	}
	assert.Equal(t, []string{"h1", "p", "pre", "code", "img"}, tags)

	// h1: one 36px line + 16px margin; p: one 24px line + margin;
	// pre: two lines + margin; img: fixed height.
	assert.Equal(t, 0.0, nodes[0].OffsetTop())
	assert.Equal(t, 52.0, nodes[0].Height())
	assert.Equal(t, 52.0, nodes[1].OffsetTop())
	assert.Equal(t, 40.0, nodes[1].Height())
	assert.Equal(t, 92.0, nodes[2].OffsetTop())
	assert.Equal(t, 64.0, nodes[2].Height())
	assert.Equal(t, nodes[2].OffsetTop(), nodes[3].OffsetTop())
	assert.Equal(t, 156.0, nodes[4].OffsetTop())
	assert.Equal(t, 476.0, doc.Height())

	assert.Equal(t, "one two three", nodes[1].Text())
	assert.Equal(t, "let a = 1\nlet b = 2", nodes[2].Text())
	assert.Equal(t, "scope diagram", nodes[4].Text())
}

func TestQueryMissingContainer(t *testing.T) {
	t.Parallel()
	_, err := parse(t).Query("#nope", []string{"p"})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestQueryCombinatorsAndPseudoClasses(t *testing.T) {
	t.Parallel()
	doc := parse(t)

	nodes, err := doc.Query("body article", []string{"p"})
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	nodes, err = doc.Query("body > article", []string{"article > h1", "pre code"})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "h1", nodes[0].Tag())
	assert.Equal(t, "code", nodes[1].Tag())

	nodes, err = doc.Query("body", []string{"article :first-child", "img[alt]"})
	require.NoError(t, err)
	tags := make([]string, 0, len(nodes))
	for _, n := range nodes {
		tags = append(tags, n.Tag())
	}
	assert.Equal(t, []string{"h1", "code", "img"}, tags)
}

func TestQueryRejectsMalformedSelectors(t *testing.T) {
	t.Parallel()
	doc := parse(t)
	_, err := doc.Query("article[", []string{"p"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = doc.Query("body", []string{"p", "h1 >"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestIDsCanBeAssignedAndFound(t *testing.T) {
	t.Parallel()
	doc := parse(t)
	nodes, err := doc.Query("body", []string{"p"})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "", nodes[0].ID())
	nodes[0].SetID("element-1")

	found, ok := doc.FindByID("element-1")
	require.True(t, ok)
	assert.Equal(t, "p", found.Tag())
	_, ok = doc.FindByID("intro")
	assert.True(t, ok)
}

func TestViewportClampsScroll(t *testing.T) {
	t.Parallel()
	doc := parse(t)
	vp := htmldoc.NewViewport(doc, 200)
	vp.ScrollTo(1000)
	assert.Equal(t, 276.0, vp.ScrollTop())
	vp.ScrollTo(-10)
	assert.Equal(t, 0.0, vp.ScrollTop())
	assert.Equal(t, 476.0, vp.DocumentHeight())
}
