package sru

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/schema"
)

type searchRetrieveResponse struct {
	XMLName            xml.Name     `xml:"searchRetrieveResponse"`
	NumberOfRecords    string       `xml:"numberOfRecords"`
	Records            []sruRecord  `xml:"records>record"`
	NextRecordPosition string       `xml:"nextRecordPosition"`
	Diagnostics        []Diagnostic `xml:"diagnostics>diagnostic"`
}

type sruRecord struct {
	Schema     string     `xml:"recordSchema"`
	Packing    string     `xml:"recordPacking"`
	Data       recordData `xml:"recordData"`
	Identifier string     `xml:"recordIdentifier"`
}

type recordData struct {
	Inner []byte `xml:",innerxml"`
	Text  string `xml:",chardata"`
}

// payload returns the embedded record, unescaping string-packed records.
func (d recordData) payload() []byte {
	if bytes.HasPrefix(bytes.TrimSpace(d.Inner), []byte("<")) {
		return d.Inner
	}
	return []byte(d.Text)
}

// Diagnostic is an SRU diagnostic reported by the server.
type Diagnostic struct {
	URI     string `xml:"uri"`
	Details string `xml:"details"`
	Message string `xml:"message"`
}

// Code returns the diagnostic number, the last segment of the URI.
func (d Diagnostic) Code() string {
	uri := strings.TrimSpace(d.URI)
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

func (d Diagnostic) String() string {
	msg := strings.TrimSpace(d.Message)
	if details := strings.TrimSpace(d.Details); details != "" {
		if msg != "" {
			msg += ": "
		}
		msg += details
	}
	return msg
}

// Result is one parsed searchRetrieve response.
type Result struct {
	Batch           record.Batch
	NumberOfRecords int
	// NextRecordPosition is zero when the server reports no further page.
	NextRecordPosition int
	Diagnostics        []Diagnostic
}

// ParseResponse parses a searchRetrieve response. Diagnostics in a response
// without records fail the request as a ProtocolError; alongside records
// they become warnings.
func ParseResponse(body []byte) (Result, error) {
	var resp searchRetrieveResponse
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&resp); err != nil {
		return Result{}, liberrors.NewMalformedResponseError(protocolName, err)
	}

	res := Result{Diagnostics: resp.Diagnostics}
	res.NumberOfRecords, _ = strconv.Atoi(strings.TrimSpace(resp.NumberOfRecords))
	res.NextRecordPosition, _ = strconv.Atoi(strings.TrimSpace(resp.NextRecordPosition))

	for i, rec := range resp.Records {
		index := i + 1
		id := strings.TrimSpace(rec.Identifier)
		r, err := schema.Parse(rec.Data.payload(), record.ProtocolSRU)
		if err != nil {
			res.Batch.Warn(index, id, err.Error())
			continue
		}
		if r.RawIdentifier == nil {
			r.RawIdentifier = record.Some(id)
		}
		res.Batch.Add(index, id, r)
	}

	if len(resp.Records) == 0 && len(resp.Diagnostics) > 0 {
		d := resp.Diagnostics[0]
		return res, liberrors.NewProtocolError(protocolName, d.Code(), d.String())
	}
	for _, d := range resp.Diagnostics {
		res.Batch.Warn(0, "", fmt.Sprintf("diagnostic %s: %s", d.Code(), d.String()))
	}
	return res, nil
}
