// Package tcf converts between texts and the WebLicht Text Corpus Format
// (TCF 0.4).
//
// Import maps tokens to an elementary "words" layer, sentences to an
// enveloping "sentences" layer and, when present, lemmas and POS tags to an
// ambiguous "morph_analysis" layer under words. Token offsets are taken from
// the start and end attributes when given; otherwise tokens are located in
// the text in document order.
//
// Parsing uses xmlquery, whose decoder does not fetch external entities.
package tcf

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/annotext/core/errors"
	"github.com/FocuswithJustin/annotext/core/text"
)

// Layer names produced by Import and read by Export.
const (
	WordsLayer     = "words"
	SentencesLayer = "sentences"
	MorphLayer     = "morph_analysis"
)

// Namespaces of the TCF document.
const (
	NamespaceDSpin      = "http://www.dspin.de/data"
	NamespaceMetadata   = "http://www.dspin.de/data/metadata"
	NamespaceTextCorpus = "http://www.dspin.de/data/textcorpus"
)

// element compiles a path below TextCorpus. The first step is matched by
// local name so documents with and without namespaces are accepted.
func element(path string) *xpath.Expr {
	first, rest, _ := strings.Cut(path, "/")
	expr := fmt.Sprintf("//*[local-name()='TextCorpus']/*[local-name()='%s']", first)
	if rest != "" {
		expr += "/" + rest
	}
	return xpath.MustCompile(expr)
}

var (
	textExpr       = element("text")
	tokenExpr      = element("tokens/*[local-name()='token']")
	sentenceExpr   = element("sentences/*[local-name()='sentence']")
	lemmaExpr      = element("lemmas/*[local-name()='lemma']")
	tagExpr        = element("POStags/*[local-name()='tag']")
	textCorpusExpr = xpath.MustCompile("//*[local-name()='TextCorpus']")
)

type token struct {
	id         string
	start, end int
}

// Import parses a TCF document.
func Import(data []byte) (*text.Text, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewParse("TCF", "", err.Error())
	}
	corpus := xmlquery.QuerySelector(doc, textCorpusExpr)
	if corpus == nil {
		return nil, errors.NewParse("TCF", "", "no TextCorpus element")
	}
	textNode := xmlquery.QuerySelector(doc, textExpr)
	if textNode == nil {
		return nil, errors.NewParse("TCF", "", "no text element")
	}
	body := textNode.InnerText()
	meta := map[string]interface{}{}
	if lang := corpus.SelectAttr("lang"); lang != "" {
		meta["lang"] = lang
	}
	t := text.New(body, text.WithMeta(meta))

	tokens, err := readTokens(doc, body)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return t, nil
	}

	words, err := text.NewLayer(text.Config{Name: WordsLayer, Text: t})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*text.Span, len(tokens))
	for _, tok := range tokens {
		if _, err := words.Add(tok.start, tok.end, nil); err != nil {
			return nil, errors.NewParse("TCF", "", fmt.Sprintf("token %s: %v", tok.id, err))
		}
	}
	for i, s := range words.Spans() {
		byID[tokens[i].id] = s
	}
	if err := t.AddLayer(words); err != nil {
		return nil, err
	}

	if err := importSentences(doc, t, byID); err != nil {
		return nil, err
	}
	if err := importMorph(doc, t, byID); err != nil {
		return nil, err
	}
	return t, nil
}

// readTokens reads token offsets in rune units.
func readTokens(doc *xmlquery.Node, body string) ([]token, error) {
	nodes := xmlquery.QuerySelectorAll(doc, tokenExpr)
	tokens := make([]token, 0, len(nodes))
	runes := []rune(body)
	cursor := 0
	for i, n := range nodes {
		tok := token{id: n.SelectAttr("ID")}
		if tok.id == "" {
			tok.id = fmt.Sprintf("t_%d", i)
		}
		form := n.InnerText()
		start, end := n.SelectAttr("start"), n.SelectAttr("end")
		if start != "" && end != "" {
			if _, err := fmt.Sscan(start, &tok.start); err != nil {
				return nil, errors.NewParse("TCF", "", "token "+tok.id+": bad start "+start)
			}
			if _, err := fmt.Sscan(end, &tok.end); err != nil {
				return nil, errors.NewParse("TCF", "", "token "+tok.id+": bad end "+end)
			}
		} else {
			idx := strings.Index(string(runes[cursor:]), form)
			if form == "" || idx < 0 {
				return nil, errors.NewParse("TCF", "", fmt.Sprintf("token %s %q not found in text", tok.id, form))
			}
			tok.start = cursor + utf8.RuneCountInString(string(runes[cursor:])[:idx])
			tok.end = tok.start + utf8.RuneCountInString(form)
		}
		if tok.start < cursor && len(tokens) > 0 {
			return nil, errors.NewParse("TCF", "", "tokens out of order at "+tok.id)
		}
		cursor = tok.end
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func tokenSpans(byID map[string]*text.Span, ids string) ([]*text.Span, error) {
	var spans []*text.Span
	for _, id := range strings.Fields(ids) {
		s, ok := byID[id]
		if !ok {
			return nil, errors.NewParse("TCF", "", "unknown token ID "+id)
		}
		spans = append(spans, s)
	}
	return spans, nil
}

func importSentences(doc *xmlquery.Node, t *text.Text, byID map[string]*text.Span) error {
	nodes := xmlquery.QuerySelectorAll(doc, sentenceExpr)
	if len(nodes) == 0 {
		return nil
	}
	sentences, err := text.NewLayer(text.Config{Name: SentencesLayer, Enveloping: WordsLayer, Text: t})
	if err != nil {
		return err
	}
	for _, n := range nodes {
		spans, err := tokenSpans(byID, n.SelectAttr("tokenIDs"))
		if err != nil {
			return err
		}
		if len(spans) == 0 {
			continue
		}
		if _, err := sentences.AddEnveloping(spans, nil); err != nil {
			return errors.NewParse("TCF", "", "sentence "+n.SelectAttr("ID")+": "+err.Error())
		}
	}
	return t.AddLayer(sentences)
}

// importMorph pairs lemmas and POS tags by token. A token may carry several
// of each; they are combined position by position.
func importMorph(doc *xmlquery.Node, t *text.Text, byID map[string]*text.Span) error {
	lemmas := xmlquery.QuerySelectorAll(doc, lemmaExpr)
	tags := xmlquery.QuerySelectorAll(doc, tagExpr)
	if len(lemmas) == 0 && len(tags) == 0 {
		return nil
	}

	type analysis struct{ lemma, pos []interface{} }
	per := map[*text.Span]*analysis{}
	get := func(s *text.Span) *analysis {
		if per[s] == nil {
			per[s] = &analysis{}
		}
		return per[s]
	}
	collect := func(nodes []*xmlquery.Node, lemma bool) error {
		for _, n := range nodes {
			spans, err := tokenSpans(byID, n.SelectAttr("tokenIDs"))
			if err != nil {
				return err
			}
			for _, s := range spans {
				a := get(s)
				if lemma {
					a.lemma = append(a.lemma, n.InnerText())
				} else {
					a.pos = append(a.pos, n.InnerText())
				}
			}
		}
		return nil
	}
	if err := collect(lemmas, true); err != nil {
		return err
	}
	if err := collect(tags, false); err != nil {
		return err
	}

	morph, err := text.NewLayer(text.Config{
		Name:       MorphLayer,
		Parent:     WordsLayer,
		Attributes: []string{"lemma", "partofspeech"},
		Ambiguous:  true,
		Text:       t,
	})
	if err != nil {
		return err
	}
	words, _ := t.Layer(WordsLayer)
	for _, w := range words.Spans() {
		a, ok := per[w]
		if !ok {
			continue
		}
		n := len(a.lemma)
		if len(a.pos) > n {
			n = len(a.pos)
		}
		for i := 0; i < n; i++ {
			attrs := map[string]interface{}{"lemma": nil, "partofspeech": nil}
			if i < len(a.lemma) {
				attrs["lemma"] = a.lemma[i]
			}
			if i < len(a.pos) {
				attrs["partofspeech"] = a.pos[i]
			}
			if _, err := morph.AddAnnotation(w.BaseSpan(), attrs); err != nil {
				return err
			}
		}
	}
	return t.AddLayer(morph)
}

// Export writes t as a TCF document. The words layer is required; the
// sentences and morph_analysis layers are written when attached.
func Export(t *text.Text) ([]byte, error) {
	words, err := t.Layer(WordsLayer)
	if err != nil {
		return nil, errors.NewUnsupported("TCF export", "text has no "+WordsLayer+" layer")
	}
	if words.Kind() != text.KindElementary {
		return nil, errors.NewUnsupported("TCF export", WordsLayer+" layer must be elementary")
	}

	ids := make(map[*text.Span]string, words.Len())
	var b strings.Builder
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, "<D-Spin xmlns=%q version=\"0.4\">\n", NamespaceDSpin)
	fmt.Fprintf(&b, "  <MetaData xmlns=%q/>\n", NamespaceMetadata)
	fmt.Fprintf(&b, "  <TextCorpus xmlns=%q", NamespaceTextCorpus)
	if lang, ok := t.Meta["lang"].(string); ok {
		fmt.Fprintf(&b, " lang=\"%s\"", escape(lang))
	}
	b.WriteString(">\n")
	fmt.Fprintf(&b, "    <text>%s</text>\n", escape(t.String()))

	b.WriteString("    <tokens>\n")
	for i, w := range words.Spans() {
		id := fmt.Sprintf("t_%d", i)
		ids[w] = id
		fmt.Fprintf(&b, "      <token ID=\"%s\" start=\"%d\" end=\"%d\">%s</token>\n", id, w.Start(), w.End(), escape(w.Text()))
	}
	b.WriteString("    </tokens>\n")

	if sentences, err := t.Layer(SentencesLayer); err == nil && sentences.Enveloping() == WordsLayer {
		b.WriteString("    <sentences>\n")
		for i, s := range sentences.Spans() {
			fmt.Fprintf(&b, "      <sentence ID=\"s_%d\" tokenIDs=\"%s\"/>\n", i, joinIDs(ids, s.Spans()))
		}
		b.WriteString("    </sentences>\n")
	}

	if morph, err := t.Layer(MorphLayer); err == nil && morph.Parent() == WordsLayer {
		var lemmas, tags strings.Builder
		n := 0
		for _, s := range morph.Spans() {
			id := ids[s.Parent()]
			for _, a := range s.Annotations() {
				if v, ok := a.Value("lemma").(string); ok {
					fmt.Fprintf(&lemmas, "      <lemma ID=\"l_%d\" tokenIDs=\"%s\">%s</lemma>\n", n, id, escape(v))
					n++
				}
				if v, ok := a.Value("partofspeech").(string); ok {
					fmt.Fprintf(&tags, "      <tag tokenIDs=\"%s\">%s</tag>\n", id, escape(v))
				}
			}
		}
		if lemmas.Len() > 0 {
			b.WriteString("    <lemmas>\n" + lemmas.String() + "    </lemmas>\n")
		}
		if tags.Len() > 0 {
			b.WriteString("    <POStags tagset=\"vabamorf\">\n" + tags.String() + "    </POStags>\n")
		}
	}

	b.WriteString("  </TextCorpus>\n</D-Spin>\n")
	return []byte(b.String()), nil
}

func joinIDs(ids map[*text.Span]string, spans []*text.Span) string {
	parts := make([]string, len(spans))
	for i, s := range spans {
		parts[i] = ids[s]
	}
	return strings.Join(parts, " ")
}

func escape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
