package htmlutil

import (
	"bytes"
	"context"
	"io"
	"strings"
	"studiocheck/lib/textutil"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("studiocheck/lib/htmlutil")

// GetText concatenates every text node below node.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, buffer)
	}
}

func removeNonPrintable(s string) string {
	out := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			out.WriteRune(c)
		}
	}
	return out.String()
}

// CleanText returns the printable text of a selection with whitespace collapsed.
func CleanText(sel *goquery.Selection) string {
	var buffer strings.Builder
	for _, n := range sel.Nodes {
		buffer.WriteString(GetText(n))
	}
	return textutil.CollapseSpace(removeNonPrintable(buffer.String()))
}

// Attr returns the value of an attribute on node, or "".
func Attr(node *html.Node, key string) string {
	if node == nil {
		return ""
	}
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// ParseDocument parses an html page under a span named after source.
func ParseDocument(ctx context.Context, source string, body io.Reader) (*goquery.Document, error) {
	_, span := tracer.Start(ctx, "ParseDocument")
	defer span.End()
	span.SetAttributes(attribute.String("source", source))

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}
	return doc, nil
}

// ParseString is ParseDocument for an already rendered page.
func ParseString(ctx context.Context, source, page string) (*goquery.Document, error) {
	return ParseDocument(ctx, source, strings.NewReader(page))
}
