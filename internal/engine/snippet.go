package engine

import (
	"bytes"
	"encoding/xml"

	"github.com/roach88/tagstamp/internal/model"
)

// NodeSnippet renders t's base tags as a single-node OSM XML document, the
// form editors accept on paste.
func NodeSnippet(t *model.Template) string {
	var buf bytes.Buffer
	buf.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	buf.WriteString("<osm version=\"0.6\" generator=\"tagstamp\">\n")
	buf.WriteString("  <node id=\"-1\" lat=\"0\" lon=\"0\">\n")
	for _, tag := range t.Tags.Tags() {
		buf.WriteString("    <tag k=\"")
		_ = xml.EscapeText(&buf, []byte(tag.Key))
		buf.WriteString("\" v=\"")
		_ = xml.EscapeText(&buf, []byte(tag.Value))
		buf.WriteString("\"/>\n")
	}
	buf.WriteString("  </node>\n")
	buf.WriteString("</osm>\n")
	return buf.String()
}
