package xmltree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/officina-data/invoiceconv/internal/errors"
)

// nested builds a well-formed document with exactly depth nested elements.
func nested(depth int) []byte {
	var b strings.Builder
	for i := 0; i < depth; i++ {
		b.WriteString("<a>")
	}
	b.WriteString("x")
	for i := 0; i < depth; i++ {
		b.WriteString("</a>")
	}
	return []byte(b.String())
}

func TestParseBuildsOrderedTree(t *testing.T) {
	doc := []byte(`<root attr="v">
		<first>uno</first>
		<second>due</second>
		<first>tre</first>
	</root>`)

	root, err := Parse(doc, 10)
	require.NoError(t, err)

	assert.Equal(t, "root", root.Name)
	require.Len(t, root.Attrs, 1)
	assert.Equal(t, "attr", root.Attrs[0].Name)
	assert.Equal(t, "v", root.Attrs[0].Value)

	require.Len(t, root.Children, 3)
	assert.Equal(t, []string{"first", "second", "first"},
		[]string{root.Children[0].Name, root.Children[1].Name, root.Children[2].Name})
	assert.Equal(t, "uno", root.Children[0].Text)

	// ChildrenNamed preserves document order.
	firsts := root.ChildrenNamed("first")
	require.Len(t, firsts, 2)
	assert.Equal(t, "uno", firsts[0].Text)
	assert.Equal(t, "tre", firsts[1].Text)
}

func TestParseDropsNamespacePrefixes(t *testing.T) {
	doc := []byte(`<p:FatturaElettronica xmlns:p="http://example.com/ns">
		<FatturaElettronicaHeader><x>1</x></FatturaElettronicaHeader>
	</p:FatturaElettronica>`)

	root, err := Parse(doc, 10)
	require.NoError(t, err)
	assert.Equal(t, "FatturaElettronica", root.Name)
	assert.Equal(t, "1", root.FindText("FatturaElettronicaHeader", "x"))
}

func TestParseMalformedCarriesLine(t *testing.T) {
	doc := []byte("<root>\n<unclosed>\n</root>")

	_, err := Parse(doc, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedXML))
	assert.Contains(t, err.Error(), "line")
}

func TestParseDepthSecondDefense(t *testing.T) {
	_, err := Parse(nested(11), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrExcessiveNesting))

	_, err = Parse(nested(10), 10)
	assert.NoError(t, err)
}

func TestScanDepthLimit(t *testing.T) {
	// Exactly at the limit passes; one level over is rejected.
	assert.NoError(t, Scan(nested(10), 10))

	err := Scan(nested(11), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrExcessiveNesting))
}

func TestScanRejectsDoctype(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{
			// The entity is declared but never referenced; still rejected.
			name: "declared_not_referenced",
			doc:  `<!DOCTYPE root [<!ENTITY x "y">]><root>plain</root>`,
		},
		{
			name: "bare_doctype",
			doc:  `<!DOCTYPE root SYSTEM "http://evil.example/a.dtd"><root/>`,
		},
		{
			name: "billion_laughs_prefix",
			doc: `<!DOCTYPE lolz [<!ENTITY lol "lol"><!ENTITY lol2 "&lol;&lol;&lol;">]>
				<lolz>&lol2;</lolz>`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Scan([]byte(tc.doc), 10)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrUnsafeEntityDeclaration))
		})
	}
}

func TestParseRefusesUndeclaredEntity(t *testing.T) {
	// No DOCTYPE, so the reference cannot resolve; the document is malformed,
	// never expanded.
	_, err := Parse([]byte(`<root>&boom;</root>`), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedXML))
}

func TestParsePredefinedEntitiesStillWork(t *testing.T) {
	root, err := Parse([]byte(`<root>a &amp; b &lt;c&gt;</root>`), 10)
	require.NoError(t, err)
	assert.Equal(t, "a & b <c>", root.Text)
}

func TestFindMissingPath(t *testing.T) {
	root, err := Parse([]byte(`<root><a><b>v</b></a></root>`), 10)
	require.NoError(t, err)

	assert.Equal(t, "v", root.FindText("a", "b"))
	assert.Nil(t, root.Find("a", "missing"))
	assert.Equal(t, "", root.FindText("nope"))
}
