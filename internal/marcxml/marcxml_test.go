package marcxml

import (
	"fmt"
	"strings"
	"testing"

	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRecord = `<?xml version="1.0" encoding="UTF-8"?>
<record xmlns="http://www.loc.gov/MARC21/slim">
  <leader>00000cam a2200000 c 4500</leader>
  <controlfield tag="001">1234567890</controlfield>
  <controlfield tag="008">200101s2020    gw            000 0 ger  </controlfield>
  <datafield tag="020" ind1=" " ind2=" ">
    <subfield code="a">978-3-16-148410-0 Pp. : EUR 20.00</subfield>
  </datafield>
  <datafield tag="100" ind1="1" ind2=" ">
    <subfield code="a">Müller, Hans,</subfield>
    <subfield code="d">1950-</subfield>
  </datafield>
  <datafield tag="245" ind1="1" ind2="0">
    <subfield code="a">Einführung in die Theologie :</subfield>
    <subfield code="b">ein Lehrbuch /</subfield>
    <subfield code="c">Hans Müller</subfield>
  </datafield>
  <datafield tag="264" ind1=" " ind2="1">
    <subfield code="a">Tübingen :</subfield>
    <subfield code="b">Mohr Siebeck,</subfield>
    <subfield code="c">[2020]</subfield>
  </datafield>
  <datafield tag="500" ind1=" " ind2=" ">
    <subfield code="a">Literaturverzeichnis</subfield>
  </datafield>
  <datafield tag="650" ind1=" " ind2="7">
    <subfield code="a">Theologie</subfield>
    <subfield code="x">Einführung</subfield>
    <subfield code="2">gnd</subfield>
  </datafield>
  <datafield tag="650" ind1=" " ind2="7">
    <subfield code="a">Dogmatik</subfield>
  </datafield>
  <datafield tag="700" ind1="1" ind2=" ">
    <subfield code="a">Schmidt, Anna</subfield>
  </datafield>
  <datafield tag="856" ind1="4" ind2="0">
    <subfield code="u">https://d-nb.info/1234567890</subfield>
  </datafield>
</record>`

func TestParseRecordMapsTagTable(t *testing.T) {
	r, err := ParseRecord([]byte(sampleRecord), record.ProtocolSRU)
	require.NoError(t, err)

	assert.Equal(t, "Einführung in die Theologie: ein Lehrbuch", r.Title)
	assert.Equal(t, []string{"Müller, Hans", "Schmidt, Anna"}, r.Authors)
	assert.Equal(t, "2020", record.Value(r.Year))
	assert.Equal(t, "Tübingen", record.Value(r.Place))
	assert.Equal(t, "Mohr Siebeck", record.Value(r.Publisher))
	assert.Equal(t, "978-3-16-148410-0", record.Value(r.ISBN))
	assert.Equal(t, "ger", record.Value(r.Language))
	assert.Equal(t, []string{"Theologie -- Einführung", "Dogmatik"}, r.Subjects)
	assert.Equal(t, []string{"https://d-nb.info/1234567890"}, r.URLs)
	assert.Equal(t, "1234567890", record.Value(r.RawIdentifier))
	assert.Equal(t, record.ProtocolSRU, r.Source)
	assert.Nil(t, r.ISSN)
	assert.Nil(t, r.Abstract)

	assert.Equal(t, "00000cam a2200000 c 4500", r.Extra["leader"])
	assert.Equal(t, "Hans Müller", r.Extra["245$c"])
	assert.Equal(t, "1950-", r.Extra["100$d"])
	assert.Equal(t, "Literaturverzeichnis", r.Extra["500$a"])
	assert.Equal(t, "gnd", r.Extra["650$2"])
}

func tenRecordCollection(missingTitle int) string {
	var b strings.Builder
	b.WriteString(`<collection xmlns="http://www.loc.gov/MARC21/slim">`)
	for i := 1; i <= 10; i++ {
		b.WriteString("<record>")
		fmt.Fprintf(&b, `<controlfield tag="001">id%d</controlfield>`, i)
		if i != missingTitle {
			fmt.Fprintf(&b, `<datafield tag="245" ind1="0" ind2="0"><subfield code="a">Title %d</subfield></datafield>`, i)
		}
		b.WriteString("</record>")
	}
	b.WriteString("</collection>")
	return b.String()
}

func TestParseSkipsRecordWithoutTitle(t *testing.T) {
	batch, err := Parse([]byte(tenRecordCollection(4)), record.ProtocolOAI)
	require.NoError(t, err)

	require.Len(t, batch.Records, 9)
	require.Len(t, batch.Warnings, 1)
	assert.Equal(t, 4, batch.Warnings[0].Index)
	assert.Equal(t, "id4", batch.Warnings[0].ID)
	assert.Equal(t, "Title 1", batch.Records[0].Title)
	assert.Equal(t, "Title 10", batch.Records[8].Title)
}

func TestParseMalformedDocument(t *testing.T) {
	for name, body := range map[string]string{
		"not xml":   "this is not xml",
		"truncated": `<collection><record><datafield tag="245">`,
		"empty":     "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body), record.ProtocolSRU)
			require.Error(t, err)
			assert.True(t, liberrors.IsMalformedResponseError(err))
		})
	}
}

func TestParsePrefixedMarcxchangeRecord(t *testing.T) {
	body := `<mxc:record xmlns:mxc="info:lc/xmlns/marcxchange-v2" format="MARC21">
  <mxc:controlfield tag="001">zdb-1</mxc:controlfield>
  <mxc:datafield tag="022" ind1=" " ind2=" "><mxc:subfield code="a">0012-1045</mxc:subfield></mxc:datafield>
  <mxc:datafield tag="245" ind1="0" ind2="0"><mxc:subfield code="a">Deutsche Bibliographie</mxc:subfield></mxc:datafield>
</mxc:record>`
	r, err := ParseRecord([]byte(body), record.ProtocolSRU)
	require.NoError(t, err)
	assert.Equal(t, "Deutsche Bibliographie", r.Title)
	assert.Equal(t, "0012-1045", record.Value(r.ISSN))
	assert.Equal(t, "zdb-1", record.Value(r.RawIdentifier))
}

func TestParseRecordYearFallbacks(t *testing.T) {
	body := `<record>
  <controlfield tag="008">850101s1985    xx            000 0 eng d</controlfield>
  <datafield tag="245" ind1="0" ind2="0"><subfield code="a">Old book.</subfield></datafield>
  <datafield tag="260" ind1=" " ind2=" "><subfield code="b">Printer</subfield></datafield>
</record>`
	r, err := ParseRecord([]byte(body), record.ProtocolSRU)
	require.NoError(t, err)
	assert.Equal(t, "1985", record.Value(r.Year))
	assert.Equal(t, "eng", record.Value(r.Language))
	assert.Equal(t, "Printer", record.Value(r.Publisher))
}

func TestWriteRoundTripsMARCRecord(t *testing.T) {
	original, err := ParseRecord([]byte(sampleRecord), record.ProtocolSRU)
	require.NoError(t, err)

	out, err := Write([]record.Record{original})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, string(out), `<collection xmlns="http://www.loc.gov/MARC21/slim">`)

	batch, err := Parse(out, record.ProtocolSRU)
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	again := batch.Records[0]

	assert.Equal(t, original.Title, again.Title)
	assert.Equal(t, original.Authors, again.Authors)
	assert.Equal(t, original.Year, again.Year)
	assert.Equal(t, original.Place, again.Place)
	assert.Equal(t, original.Publisher, again.Publisher)
	assert.Equal(t, original.ISBN, again.ISBN)
	assert.Equal(t, original.Subjects, again.Subjects)
	assert.Equal(t, original.URLs, again.URLs)
	assert.Equal(t, original.RawIdentifier, again.RawIdentifier)
	assert.Equal(t, original.Extra["leader"], again.Extra["leader"])
	assert.Equal(t, original.Extra["500$a"], again.Extra["500$a"])
	assert.Equal(t, original.Extra["245$c"], again.Extra["245$c"])
	assert.Equal(t, original.Extra["100$d"], again.Extra["100$d"])
}

const corporateRecord = `<record xmlns="http://www.loc.gov/MARC21/slim">
  <leader>00000nam a2200000 a 4500</leader>
  <controlfield tag="001">bull-1521</controlfield>
  <datafield tag="110" ind1="2" ind2=" ">
    <subfield code="a">Catholic Church.</subfield>
    <subfield code="b">Pope (1513-1521 : Leo X)</subfield>
  </datafield>
  <datafield tag="245" ind1="1" ind2="0">
    <subfield code="a">Decet Romanum Pontificem</subfield>
  </datafield>
  <datafield tag="260" ind1=" " ind2=" ">
    <subfield code="a">Rome :</subfield>
    <subfield code="b">[s.n.],</subfield>
    <subfield code="c">1521.</subfield>
    <subfield code="e">Printed in Milan</subfield>
  </datafield>
  <datafield tag="600" ind1="1" ind2="0">
    <subfield code="a">Luther, Martin,</subfield>
    <subfield code="d">1483-1546.</subfield>
  </datafield>
</record>`

func TestWriteKeepsSourceTags(t *testing.T) {
	original, err := ParseRecord([]byte(corporateRecord), record.ProtocolSRU)
	require.NoError(t, err)
	assert.Equal(t, []string{"Catholic Church."}, original.Authors)
	assert.Equal(t, "1521", record.Value(original.Year))

	out, err := Write([]record.Record{original})
	require.NoError(t, err)
	for _, want := range []string{`tag="110" ind1="2"`, `tag="260"`, `tag="600" ind1="1" ind2="0"`, "1483-1546", "Printed in Milan", "Pope"} {
		assert.Contains(t, string(out), want)
	}
	for _, unwanted := range []string{`tag="100"`, `tag="264"`, `tag="650"`} {
		assert.NotContains(t, string(out), unwanted)
	}

	batch, err := Parse(out, record.ProtocolSRU)
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	again := batch.Records[0]

	assert.Equal(t, original.Authors, again.Authors)
	assert.Equal(t, original.Subjects, again.Subjects)
	assert.Equal(t, original.Place, again.Place)
	assert.Equal(t, original.Publisher, again.Publisher)
	assert.Equal(t, original.Year, again.Year)
	assert.Equal(t, "1483-1546.", again.Extra["600$d"])
	assert.Equal(t, "Printed in Milan", again.Extra["260$e"])
	assert.Equal(t, "Pope (1513-1521 : Leo X)", again.Extra["110$b"])
	assert.Equal(t, original.Extra, again.Extra)
}

func TestMergeExtraOpensFieldForMappedTag(t *testing.T) {
	r := record.Record{
		Title: "Orphan",
		Extra: map[string]string{"leader": defaultLeader, "600$d": "1483-1546"},
	}
	m := FromRecord(r)

	var persons []DataField
	for _, df := range m.DataFields {
		if df.Tag == "600" {
			persons = append(persons, df)
		}
	}
	require.Len(t, persons, 1)
	assert.Equal(t, "1483-1546", persons[0].First("d"))
}

func TestRepeatedSingleValueSubfieldsSurvive(t *testing.T) {
	body := `<record>
  <leader>00000nam a2200000 a 4500</leader>
  <datafield tag="020" ind1=" " ind2=" "><subfield code="a">978-3-16-148410-0 (hbk.)</subfield></datafield>
  <datafield tag="020" ind1=" " ind2=" "><subfield code="a">978-3-16-148411-7 (pbk.)</subfield></datafield>
  <datafield tag="041" ind1="0" ind2=" "><subfield code="a">ger</subfield><subfield code="a">lat</subfield></datafield>
  <datafield tag="245" ind1="0" ind2="0"><subfield code="a">Zweisprachig</subfield></datafield>
  <datafield tag="520" ind1=" " ind2=" "><subfield code="a">First abstract.</subfield></datafield>
  <datafield tag="520" ind1=" " ind2=" "><subfield code="a">Second abstract.</subfield></datafield>
</record>`
	original, err := ParseRecord([]byte(body), record.ProtocolSRU)
	require.NoError(t, err)

	assert.Equal(t, "978-3-16-148410-0", record.Value(original.ISBN))
	assert.Equal(t, "978-3-16-148411-7 (pbk.)", original.Extra["020$a"])
	assert.Equal(t, "ger", record.Value(original.Language))
	assert.Equal(t, "lat", original.Extra["041$a"])
	assert.Equal(t, "First abstract.", record.Value(original.Abstract))
	assert.Equal(t, "Second abstract.", original.Extra["520$a"])

	out, err := Write([]record.Record{original})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(out), `tag="020"`))
	assert.Equal(t, 2, strings.Count(string(out), `tag="041"`))
	assert.Equal(t, 2, strings.Count(string(out), `tag="520"`))

	again, err := ParseRecord(out, record.ProtocolSRU)
	require.NoError(t, err)
	assert.Equal(t, original.ISBN, again.ISBN)
	assert.Equal(t, original.Language, again.Language)
	assert.Equal(t, original.Abstract, again.Abstract)
	assert.Equal(t, original.Extra, again.Extra)
}

func TestFromRecordGenericMapping(t *testing.T) {
	r := record.Record{
		Title:     "Go: The Language",
		Authors:   []string{"Donovan, Alan", "Kernighan, Brian"},
		Year:      record.Some("2015"),
		Publisher: record.Some("Addison-Wesley"),
		ISSN:      record.Some("1234-5678"),
		Subjects:  []string{"Programming -- Go"},
		Source:    record.ProtocolZotero,
		Extra:     map[string]string{"dc:type": "Text"},
	}
	m := FromRecord(r)

	assert.Equal(t, defaultLeader, m.Leader)
	assert.Empty(t, m.ControlFields)

	var tags []string
	for _, df := range m.DataFields {
		tags = append(tags, df.Tag)
	}
	assert.Equal(t, []string{"022", "100", "245", "264", "650", "700"}, tags)

	title := m.DataFields[2]
	assert.Equal(t, "Go", title.First("a"))
	assert.Equal(t, "The Language", title.First("b"))
	assert.Equal(t, "Programming", m.DataFields[4].First("a"))
	assert.Equal(t, "Go", m.DataFields[4].First("x"))
}

func TestWriteIsDeterministic(t *testing.T) {
	r := record.Record{
		Title:   "Stable",
		Authors: []string{"A"},
		Extra:   map[string]string{"leader": defaultLeader, "500$a": "x | y", "500$b": "1 | 2", "246$a": "Alt"},
	}
	first, err := Write([]record.Record{r, r})
	require.NoError(t, err)
	second, err := Write([]record.Record{r, r})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	m := FromRecord(r)
	var notes []DataField
	for _, df := range m.DataFields {
		if df.Tag == "500" {
			notes = append(notes, df)
		}
	}
	require.Len(t, notes, 2)
	assert.Equal(t, "y", notes[1].First("a"))
	assert.Equal(t, "2", notes[1].First("b"))
}
