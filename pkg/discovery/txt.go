package discovery

import (
	"fmt"
	"strings"
)

// TXT record keys.
const (
	TXTKeyVersion = "v"
	TXTKeyVariant = "variant"
	TXTKeyPath    = "path"
	TXTKeyTLS     = "tls"
)

// TXTVersion is the record format version written by Encode.
const TXTVersion = "1"

// ServiceTXT is the TXT payload of a videoroom advertisement.
type ServiceTXT struct {
	// Variant is the UI variant served ("call" or "room").
	Variant string

	// Path is the URL path of the join form. Defaults to "/".
	Path string

	// TLS reports whether the front end is served over HTTPS.
	TLS bool
}

// Encode renders the record as key=value strings.
func (t ServiceTXT) Encode() []string {
	path := t.Path
	if path == "" {
		path = "/"
	}
	tls := "0"
	if t.TLS {
		tls = "1"
	}
	records := []string{TXTKeyVersion + "=" + TXTVersion}
	if t.Variant != "" {
		records = append(records, TXTKeyVariant+"="+t.Variant)
	}
	return append(records, TXTKeyPath+"="+path, TXTKeyTLS+"="+tls)
}

// ParseTXT parses raw TXT record strings into a map.
func ParseTXT(records []string) map[string]string {
	result := make(map[string]string)
	for _, record := range records {
		if idx := strings.IndexByte(record, '='); idx > 0 {
			result[record[:idx]] = record[idx+1:]
		}
	}
	return result
}

// ParseServiceTXT parses raw TXT records into a ServiceTXT. Records from an
// unknown format version are rejected.
func ParseServiceTXT(records []string) (ServiceTXT, error) {
	m := ParseTXT(records)
	if v, ok := m[TXTKeyVersion]; ok && v != TXTVersion {
		return ServiceTXT{}, fmt.Errorf("%w: version %q", ErrInvalidTXTRecord, v)
	}

	txt := ServiceTXT{
		Variant: m[TXTKeyVariant],
		Path:    m[TXTKeyPath],
	}
	if txt.Path == "" {
		txt.Path = "/"
	}
	if !strings.HasPrefix(txt.Path, "/") {
		return ServiceTXT{}, fmt.Errorf("%w: path %q", ErrInvalidTXTRecord, txt.Path)
	}
	switch m[TXTKeyTLS] {
	case "", "0":
	case "1":
		txt.TLS = true
	default:
		return ServiceTXT{}, fmt.Errorf("%w: tls %q", ErrInvalidTXTRecord, m[TXTKeyTLS])
	}
	return txt, nil
}
