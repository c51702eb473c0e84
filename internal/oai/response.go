package oai

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/schema"
)

// OAI-PMH error codes that describe an empty result rather than a failure.
const (
	ErrorNoRecordsMatch = "noRecordsMatch"
	ErrorNoSetHierarchy = "noSetHierarchy"
)

type envelope struct {
	XMLName             xml.Name             `xml:"OAI-PMH"`
	ResponseDate        string               `xml:"responseDate"`
	Errors              []oaiError           `xml:"error"`
	Identify            *Identity            `xml:"Identify"`
	ListRecords         *listRecords         `xml:"ListRecords"`
	GetRecord           *getRecord           `xml:"GetRecord"`
	ListIdentifiers     *listIdentifiers     `xml:"ListIdentifiers"`
	ListSets            *listSets            `xml:"ListSets"`
	ListMetadataFormats *listMetadataFormats `xml:"ListMetadataFormats"`
}

type oaiError struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

// Header is the OAI-PMH record header.
type Header struct {
	Status     string   `xml:"status,attr"`
	Identifier string   `xml:"identifier"`
	Datestamp  string   `xml:"datestamp"`
	SetSpecs   []string `xml:"setSpec"`
}

// Deleted reports whether the header marks a deleted record.
func (h Header) Deleted() bool { return h.Status == "deleted" }

type oaiRecord struct {
	Header   Header   `xml:"header"`
	Metadata metadata `xml:"metadata"`
}

type metadata struct {
	Inner []byte `xml:",innerxml"`
}

type resumptionToken struct {
	Value            string `xml:",chardata"`
	CompleteListSize string `xml:"completeListSize,attr"`
}

type listRecords struct {
	Records []oaiRecord      `xml:"record"`
	Token   *resumptionToken `xml:"resumptionToken"`
}

type getRecord struct {
	Record oaiRecord `xml:"record"`
}

type listIdentifiers struct {
	Headers []Header         `xml:"header"`
	Token   *resumptionToken `xml:"resumptionToken"`
}

// Set is one entry of a ListSets response.
type Set struct {
	Spec        string `xml:"setSpec"`
	Name        string `xml:"setName"`
	Description string `xml:"setDescription>dc>description"`
}

type listSets struct {
	Sets  []Set            `xml:"set"`
	Token *resumptionToken `xml:"resumptionToken"`
}

// MetadataFormat is one entry of a ListMetadataFormats response.
type MetadataFormat struct {
	Prefix    string `xml:"metadataPrefix"`
	Schema    string `xml:"schema"`
	Namespace string `xml:"metadataNamespace"`
}

type listMetadataFormats struct {
	Formats []MetadataFormat `xml:"metadataFormat"`
}

// Identity is the repository description returned by Identify.
type Identity struct {
	RepositoryName    string   `xml:"repositoryName"`
	BaseURL           string   `xml:"baseURL"`
	ProtocolVersion   string   `xml:"protocolVersion"`
	AdminEmails       []string `xml:"adminEmail"`
	EarliestDatestamp string   `xml:"earliestDatestamp"`
	DeletedRecord     string   `xml:"deletedRecord"`
	Granularity       string   `xml:"granularity"`
}

// Page is one parsed ListRecords response.
type Page struct {
	Batch record.Batch
	// Token is the resumption token; empty when the list is complete.
	Token            string
	CompleteListSize int
	// Size counts the record entries of the page, skipped ones included.
	Size int
}

// decode parses the envelope and turns OAI-PMH errors into Go errors. A
// noRecordsMatch error yields (env, true, nil).
func decode(body []byte) (envelope, bool, error) {
	var env envelope
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&env); err != nil {
		return env, false, liberrors.NewMalformedResponseError(protocolName, err)
	}
	for _, e := range env.Errors {
		if e.Code == ErrorNoRecordsMatch {
			return env, true, nil
		}
	}
	if len(env.Errors) > 0 {
		e := env.Errors[0]
		return env, false, liberrors.NewProtocolError(protocolName, e.Code, strings.TrimSpace(e.Message))
	}
	return env, false, nil
}

func missing(element string) error {
	return liberrors.NewMalformedResponseError(protocolName, errors.New("response has no "+element+" element"))
}

// ParseListRecords parses a ListRecords response. Deleted records and
// records whose metadata cannot be mapped are skipped with a warning.
func ParseListRecords(body []byte) (Page, error) {
	env, empty, err := decode(body)
	if err != nil || empty {
		return Page{}, err
	}
	if env.ListRecords == nil {
		return Page{}, missing(VerbListRecords)
	}

	page := Page{Size: len(env.ListRecords.Records)}
	for i, rec := range env.ListRecords.Records {
		if r, ok := mapRecord(&page.Batch, i+1, rec); ok {
			page.Batch.Add(i+1, rec.Header.Identifier, r)
		}
	}
	if tok := env.ListRecords.Token; tok != nil {
		page.Token = strings.TrimSpace(tok.Value)
		page.CompleteListSize, _ = strconv.Atoi(strings.TrimSpace(tok.CompleteListSize))
	}
	return page, nil
}

func mapRecord(batch *record.Batch, index int, rec oaiRecord) (record.Record, bool) {
	id := strings.TrimSpace(rec.Header.Identifier)
	if rec.Header.Deleted() {
		batch.Warn(index, id, "record is deleted")
		return record.Record{}, false
	}
	if len(bytes.TrimSpace(rec.Metadata.Inner)) == 0 {
		batch.Warn(index, id, "record has no metadata")
		return record.Record{}, false
	}
	r, err := schema.Parse(rec.Metadata.Inner, source)
	if err != nil {
		batch.Warn(index, id, err.Error())
		return record.Record{}, false
	}
	if r.RawIdentifier == nil {
		r.RawIdentifier = record.Some(id)
	}
	r.SetExtra("oai:identifier", id)
	r.SetExtra("oai:datestamp", rec.Header.Datestamp)
	for _, spec := range rec.Header.SetSpecs {
		r.SetExtra("oai:setSpec", spec)
	}
	return r, true
}

// ParseGetRecord parses a GetRecord response.
func ParseGetRecord(body []byte) (record.Batch, error) {
	var batch record.Batch
	env, empty, err := decode(body)
	if err != nil || empty {
		return batch, err
	}
	if env.GetRecord == nil {
		return batch, missing(VerbGetRecord)
	}
	if r, ok := mapRecord(&batch, 1, env.GetRecord.Record); ok {
		batch.Add(1, env.GetRecord.Record.Header.Identifier, r)
	}
	return batch, nil
}

// ParseListIdentifiers parses a ListIdentifiers response.
func ParseListIdentifiers(body []byte) ([]Header, string, error) {
	env, empty, err := decode(body)
	if err != nil || empty {
		return nil, "", err
	}
	if env.ListIdentifiers == nil {
		return nil, "", missing(VerbListIdentifiers)
	}
	var token string
	if env.ListIdentifiers.Token != nil {
		token = strings.TrimSpace(env.ListIdentifiers.Token.Value)
	}
	return env.ListIdentifiers.Headers, token, nil
}

// ParseListSets parses a ListSets response.
func ParseListSets(body []byte) ([]Set, error) {
	env, empty, err := decode(body)
	var perr *liberrors.ProtocolError
	if errors.As(err, &perr) && perr.Code == ErrorNoSetHierarchy {
		return nil, nil
	}
	if err != nil || empty {
		return nil, err
	}
	if env.ListSets == nil {
		return nil, missing(VerbListSets)
	}
	sets := env.ListSets.Sets
	for i := range sets {
		sets[i].Spec = strings.TrimSpace(sets[i].Spec)
		sets[i].Name = strings.TrimSpace(sets[i].Name)
		sets[i].Description = strings.TrimSpace(sets[i].Description)
	}
	return sets, nil
}

// ParseListMetadataFormats parses a ListMetadataFormats response.
func ParseListMetadataFormats(body []byte) ([]MetadataFormat, error) {
	env, _, err := decode(body)
	if err != nil {
		return nil, err
	}
	if env.ListMetadataFormats == nil {
		return nil, missing(VerbListMetadataFormats)
	}
	return env.ListMetadataFormats.Formats, nil
}

// ParseIdentify parses an Identify response.
func ParseIdentify(body []byte) (Identity, error) {
	env, _, err := decode(body)
	if err != nil {
		return Identity{}, err
	}
	if env.Identify == nil {
		return Identity{}, missing(VerbIdentify)
	}
	return *env.Identify, nil
}
