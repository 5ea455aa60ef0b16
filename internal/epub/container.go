package epub

import (
	"encoding/xml"
	"fmt"
)

const (
	mimetype        = "application/epub+zip"
	containerPath   = "META-INF/container.xml"
	contentDir      = "OEBPS"
	opfMediaType    = "application/oebps-package+xml"
	ncxMediaType    = "application/x-dtbncx+xml"
	xhtmlMediaType  = "application/xhtml+xml"
	containerXMLNS  = "urn:oasis:names:tc:opendocument:xmlns:container"
	packageFileName = "content.opf"
	ncxFileName     = "toc.ncx"
)

// container.xml structure
type container struct {
	XMLName   xml.Name `xml:"container"`
	Version   string   `xml:"version,attr"`
	Xmlns     string   `xml:"xmlns,attr,omitempty"`
	Rootfiles struct {
		Rootfile []rootfile `xml:"rootfile"`
	} `xml:"rootfiles"`
}

type rootfile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// buildContainer renders META-INF/container.xml pointing at opfPath.
func buildContainer(opfPath string) ([]byte, error) {
	c := container{Version: "1.0", Xmlns: containerXMLNS}
	c.Rootfiles.Rootfile = []rootfile{{FullPath: opfPath, MediaType: opfMediaType}}
	data, err := marshalXML(c, "")
	if err != nil {
		return nil, fmt.Errorf("failed to render container.xml: %w", err)
	}
	return data, nil
}
