package marcxml

// target is the canonical record attribute a MARC datafield feeds.
type target int

const (
	targetTitle target = iota
	targetAuthor
	targetPublication
	targetISBN
	targetISSN
	targetLanguage
	targetAbstract
	targetSubject
	targetURL
)

// mapping ties a datafield tag to a canonical attribute. Subfields lists the
// codes consumed by the mapping; other subfields of the field land in Extra.
type mapping struct {
	Tag       string
	Target    target
	Subfields string
}

// tagTable is shared by the parser and the writer.
var tagTable = []mapping{
	{Tag: "020", Target: targetISBN, Subfields: "a"},
	{Tag: "022", Target: targetISSN, Subfields: "a"},
	{Tag: "041", Target: targetLanguage, Subfields: "a"},
	{Tag: "100", Target: targetAuthor, Subfields: "a"},
	{Tag: "110", Target: targetAuthor, Subfields: "a"},
	{Tag: "245", Target: targetTitle, Subfields: "ab"},
	{Tag: "260", Target: targetPublication, Subfields: "abc"},
	{Tag: "264", Target: targetPublication, Subfields: "abc"},
	{Tag: "520", Target: targetAbstract, Subfields: "a"},
	{Tag: "600", Target: targetSubject, Subfields: "axyz"},
	{Tag: "610", Target: targetSubject, Subfields: "axyz"},
	{Tag: "611", Target: targetSubject, Subfields: "axyz"},
	{Tag: "630", Target: targetSubject, Subfields: "axyz"},
	{Tag: "650", Target: targetSubject, Subfields: "axyz"},
	{Tag: "651", Target: targetSubject, Subfields: "axyz"},
	{Tag: "653", Target: targetSubject, Subfields: "a"},
	{Tag: "655", Target: targetSubject, Subfields: "axyz"},
	{Tag: "700", Target: targetAuthor, Subfields: "a"},
	{Tag: "710", Target: targetAuthor, Subfields: "a"},
	{Tag: "856", Target: targetURL, Subfields: "u"},
}

var byTag = func() map[string]mapping {
	m := make(map[string]mapping, len(tagTable))
	for _, t := range tagTable {
		m[t.Tag] = t
	}
	return m
}()

func lookup(tag string) (mapping, bool) {
	m, ok := byTag[tag]
	return m, ok
}

func (m mapping) consumes(code string) bool {
	for _, c := range m.Subfields {
		if string(c) == code {
			return true
		}
	}
	return false
}

// Tags written back by the writer for canonical attributes.
const (
	tagControlNumber = "001"
	tagFixedData     = "008"
	tagISBN          = "020"
	tagISSN          = "022"
	tagLanguage      = "041"
	tagMainAuthor    = "100"
	tagTitle         = "245"
	tagPublication   = "264"
	tagAbstract      = "520"
	tagTopic         = "650"
	tagAddedAuthor   = "700"
	tagURL           = "856"
)

// subjectSeparator joins subdivisions of a subject heading.
const subjectSeparator = " -- "

// extraLeader is the Extra key holding the leader of a MARC-sourced record.
const extraLeader = "leader"

// extraFields is the Extra key listing the tag and indicators of every
// mapped field of a MARC-sourced record, in source order.
const extraFields = "fields"
