package webmodule

import (
	"bytes"
	"encoding/xml"
	"io"

	"golang.org/x/text/encoding/charmap"
)

// Data is the egon_data document served by config.html and state.html.
// config.html fills Elements and Groups, state.html fills ElementStates.
type Data struct {
	XMLName       xml.Name          `xml:"egon_data"`
	Elements      []XMLElement      `xml:"elements>element"`
	Groups        []XMLGroup        `xml:"groups>group"`
	ElementStates []XMLElementState `xml:"element_states>element_state"`
}

// XMLElement is one controllable or observable point
type XMLElement struct {
	ID      string `xml:"id,attr"`
	Name    string `xml:"name,attr"`
	Type    string `xml:"type,attr"`
	Value   string `xml:"value,attr"`
	Enabled string `xml:"enabled,attr"`
}

// XMLGroup is a named collection of elements
type XMLGroup struct {
	ID       string       `xml:"id,attr"`
	Name     string       `xml:"name,attr"`
	Enabled  string       `xml:"enabled,attr"`
	Default  string       `xml:"default,attr"`
	Elements []XMLElement `xml:"elements>element"`
}

// XMLElementState is the current value of one element
type XMLElementState struct {
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

// DecodeBody converts a response body from Windows-1250 to UTF-8. The
// module always uses this code page whatever its headers claim.
func DecodeBody(raw []byte) (string, error) {
	decoded, err := charmap.Windows1250.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// ParseData unmarshals an already decoded egon_data document. The encoding
// named in the XML prolog is ignored because DecodeBody has already run.
func ParseData(body string) (*Data, error) {
	dec := xml.NewDecoder(bytes.NewReader([]byte(body)))
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var data Data
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
