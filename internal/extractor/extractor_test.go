package extractor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/officina-data/invoiceconv/internal/config"
	"github.com/officina-data/invoiceconv/internal/errors"
	"github.com/officina-data/invoiceconv/internal/xmltree"
)

type ExtractorSuite struct {
	suite.Suite
	cfg *config.Config
}

func TestExtractor(t *testing.T) {
	suite.Run(t, new(ExtractorSuite))
}

func (s *ExtractorSuite) SetupTest() {
	s.cfg = config.Default()
	s.cfg.Limits.MaxLines = 10
}

// =============================================================================
// FIXTURES
// =============================================================================

// invoiceXML assembles a FatturaPA document around the given line fragments.
func invoiceXML(lines ...string) string {
	return `<p:FatturaElettronica xmlns:p="http://ivaservizi.agenziaentrate.gov.it/docs/xsd/fatture/v1.2">
	<FatturaElettronicaHeader>
		<CedentePrestatore>
			<DatiAnagrafici>
				<IdFiscaleIVA><IdPaese>IT</IdPaese><IdCodice>01234567890</IdCodice></IdFiscaleIVA>
				<Anagrafica><Denominazione>Officine Meccaniche Rossi Srl</Denominazione></Anagrafica>
			</DatiAnagrafici>
		</CedentePrestatore>
	</FatturaElettronicaHeader>
	<FatturaElettronicaBody>
		<DatiGenerali>
			<DatiGeneraliDocumento>
				<Numero>2026/118</Numero>
				<Data>2026-05-14</Data>
				<ImportoTotaleDocumento>1525.40</ImportoTotaleDocumento>
			</DatiGeneraliDocumento>
		</DatiGenerali>
		<DatiBeniServizi>
` + strings.Join(lines, "\n") + `
		</DatiBeniServizi>
	</FatturaElettronicaBody>
</p:FatturaElettronica>`
}

func simpleLine(num int, qty, price string) string {
	return fmt.Sprintf(`<DettaglioLinee>
		<NumeroLinea>%d</NumeroLinea>
		<CodiceArticolo><CodiceTipo>INT</CodiceTipo><CodiceValore>ART-%03d</CodiceValore></CodiceArticolo>
		<Descrizione>Flangia tornita</Descrizione>
		<Quantita>%s</Quantita>
		<UnitaMisura>NR</UnitaMisura>
		<PrezzoUnitario>%s</PrezzoUnitario>
		<PrezzoTotale>%s</PrezzoTotale>
		<AliquotaIVA>22.00</AliquotaIVA>
	</DettaglioLinee>`, num, num, qty, price, price)
}

func (s *ExtractorSuite) parse(doc string) *xmltree.Node {
	root, err := xmltree.Parse([]byte(doc), s.cfg.Limits.MaxXMLDepth)
	s.Require().NoError(err)
	return root
}

// =============================================================================
// TESTS
// =============================================================================

func (s *ExtractorSuite) TestExtractFullDocument() {
	doc := invoiceXML(
		`<DettaglioLinee>
			<NumeroLinea>1</NumeroLinea>
			<CodiceArticolo><CodiceValore>ART-001</CodiceValore></CodiceArticolo>
			<Descrizione>Supporto saldato</Descrizione>
			<Quantita>2.00</Quantita>
			<UnitaMisura>NR</UnitaMisura>
			<PrezzoUnitario>12.50</PrezzoUnitario>
			<PrezzoTotale>25.00</PrezzoTotale>
			<AliquotaIVA>22.00</AliquotaIVA>
			<AltriDatiGestionali><TipoDato>DISEGNO</TipoDato><RiferimentoTesto>DWG-77</RiferimentoTesto></AltriDatiGestionali>
			<AltriDatiGestionali><TipoDato>COMMESSA</TipoDato><RiferimentoTesto>C-2026-09</RiferimentoTesto></AltriDatiGestionali>
			<AltriDatiGestionali><TipoDato>N01</TipoDato><RiferimentoTesto>DDT-5512</RiferimentoTesto></AltriDatiGestionali>
			<AltriDatiGestionali><TipoDato>INTENTO</TipoDato><RiferimentoTesto>INT-1</RiferimentoTesto></AltriDatiGestionali>
		</DettaglioLinee>`,
	)

	ex := New(s.cfg)
	result, err := ex.Extract(s.parse(doc), "in.xml", "deadbeef")
	s.Require().NoError(err)

	s.Equal("in.xml", result.Header.Filename)
	s.Equal("deadbeef", result.Header.ContentHash)
	s.Equal("01234567890", result.Header.SupplierVAT)
	s.Equal("Officine Meccaniche Rossi Srl", result.Header.SupplierName)
	s.Equal("2026/118", result.Header.DocNumber)
	s.Equal("2026-05-14", result.Header.DocDate)
	s.True(result.Header.DocAmount.Equal(decimal.RequireFromString("1525.40")))

	s.Require().Len(result.Lines, 1)
	line := result.Lines[0]
	s.Equal(1, line.Number)
	s.Equal("ART-001", line.ArticleCode)
	s.Equal("Supporto saldato", line.Description)
	s.True(line.Quantity.Equal(decimal.RequireFromString("2")))
	s.Equal("NR", line.Unit)
	s.True(line.UnitPrice.Equal(decimal.RequireFromString("12.5")))
	s.True(line.TotalPrice.Equal(decimal.RequireFromString("25")))
	s.Equal("22.00", line.VATCode)
	s.Equal("DWG-77", line.DrawingNumber)
	s.Equal("C-2026-09", line.OrderNumber)
	s.Equal("DDT-5512", line.DDTNumber)
	s.Equal("INT-1", line.Intent)
}

func (s *ExtractorSuite) TestMissingHeaderFields() {
	testCases := []struct {
		name   string
		remove string
	}{
		{"missing_vat", "<IdCodice>01234567890</IdCodice>"},
		{"missing_name", "<Denominazione>Officine Meccaniche Rossi Srl</Denominazione>"},
		{"missing_doc_number", "<Numero>2026/118</Numero>"},
		{"missing_doc_date", "<Data>2026-05-14</Data>"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			doc := strings.Replace(invoiceXML(simpleLine(1, "1", "10.00")), tc.remove, "", 1)
			_, err := New(s.cfg).Extract(s.parse(doc), "in.xml", "")
			s.Require().Error(err)
			s.True(errors.Is(err, errors.ErrMissingHeaderField))
		})
	}
}

func (s *ExtractorSuite) TestNoLineItems() {
	doc := invoiceXML() // DatiBeniServizi present, no DettaglioLinee
	_, err := New(s.cfg).Extract(s.parse(doc), "in.xml", "")
	s.Require().Error(err)
	s.True(errors.Is(err, errors.ErrNoLineItemsFound))
}

func (s *ExtractorSuite) TestLineCap() {
	s.cfg.Limits.MaxLines = 3

	atCap := make([]string, 3)
	for i := range atCap {
		atCap[i] = simpleLine(i+1, "1", "1.00")
	}
	_, err := New(s.cfg).Extract(s.parse(invoiceXML(atCap...)), "in.xml", "")
	s.NoError(err, "exactly at the cap must succeed")

	overCap := append(atCap, simpleLine(4, "1", "1.00"))
	_, err = New(s.cfg).Extract(s.parse(invoiceXML(overCap...)), "in.xml", "")
	s.Require().Error(err)
	s.True(errors.Is(err, errors.ErrTooManyLines))
}

func (s *ExtractorSuite) TestInvalidNumericField() {
	doc := invoiceXML(`<DettaglioLinee>
		<NumeroLinea>1</NumeroLinea>
		<Descrizione>x</Descrizione>
		<Quantita>abc</Quantita>
	</DettaglioLinee>`)

	_, err := New(s.cfg).Extract(s.parse(doc), "in.xml", "")
	s.Require().Error(err)
	s.True(errors.Is(err, errors.ErrInvalidNumericField))
	s.Contains(err.Error(), "Quantita")
}

func (s *ExtractorSuite) TestAmbiguousSeparatorRejected() {
	// Point locale: a comma is never silently reinterpreted.
	doc := invoiceXML(`<DettaglioLinee>
		<NumeroLinea>1</NumeroLinea>
		<Quantita>1,5</Quantita>
	</DettaglioLinee>`)

	_, err := New(s.cfg).Extract(s.parse(doc), "in.xml", "")
	s.Require().Error(err)
	s.True(errors.Is(err, errors.ErrInvalidNumericField))
}

func (s *ExtractorSuite) TestCommaLocale() {
	s.cfg.DecimalSeparator = "comma"

	doc := invoiceXML(`<DettaglioLinee>
		<NumeroLinea>1</NumeroLinea>
		<Quantita>2,50</Quantita>
		<PrezzoUnitario>4,00</PrezzoUnitario>
		<PrezzoTotale>10,00</PrezzoTotale>
	</DettaglioLinee>`)

	result, err := New(s.cfg).Extract(s.parse(doc), "in.xml", "")
	s.Require().NoError(err)
	s.True(result.Lines[0].Quantity.Equal(decimal.RequireFromString("2.5")))
	s.True(result.Lines[0].TotalPrice.Equal(decimal.RequireFromString("10")))

	// A point under the comma locale is ambiguous.
	bad := invoiceXML(`<DettaglioLinee>
		<NumeroLinea>1</NumeroLinea>
		<Quantita>2.50</Quantita>
	</DettaglioLinee>`)
	_, err = New(s.cfg).Extract(s.parse(bad), "in.xml", "")
	s.Require().Error(err)
	s.True(errors.Is(err, errors.ErrInvalidNumericField))
}

func (s *ExtractorSuite) TestAbsentNumericDefaultsToZero() {
	doc := invoiceXML(`<DettaglioLinee>
		<NumeroLinea>1</NumeroLinea>
		<Descrizione>solo descrizione</Descrizione>
	</DettaglioLinee>`)

	result, err := New(s.cfg).Extract(s.parse(doc), "in.xml", "")
	s.Require().NoError(err)
	s.True(result.Lines[0].Quantity.IsZero())
	s.True(result.Lines[0].UnitPrice.IsZero())
	s.True(result.Lines[0].TotalPrice.IsZero())
}

func (s *ExtractorSuite) TestLineNumberFallback() {
	// No NumeroLinea anywhere: numbers are assigned 1..n in document order.
	doc := invoiceXML(
		`<DettaglioLinee><Descrizione>a</Descrizione></DettaglioLinee>`,
		`<DettaglioLinee><Descrizione>b</Descrizione></DettaglioLinee>`,
		`<DettaglioLinee><Descrizione>c</Descrizione></DettaglioLinee>`,
	)

	result, err := New(s.cfg).Extract(s.parse(doc), "in.xml", "")
	s.Require().NoError(err)
	s.Require().Len(result.Lines, 3)
	for i, line := range result.Lines {
		s.Equal(i+1, line.Number)
	}
}

func (s *ExtractorSuite) TestSourceLineNumbersKept() {
	doc := invoiceXML(
		`<DettaglioLinee><NumeroLinea>10</NumeroLinea><Descrizione>a</Descrizione></DettaglioLinee>`,
		`<DettaglioLinee><NumeroLinea>20</NumeroLinea><Descrizione>b</Descrizione></DettaglioLinee>`,
	)

	result, err := New(s.cfg).Extract(s.parse(doc), "in.xml", "")
	s.Require().NoError(err)
	s.Equal(10, result.Lines[0].Number)
	s.Equal(20, result.Lines[1].Number)
}

func (s *ExtractorSuite) TestBadLineNumber() {
	doc := invoiceXML(`<DettaglioLinee><NumeroLinea>zero</NumeroLinea></DettaglioLinee>`)
	_, err := New(s.cfg).Extract(s.parse(doc), "in.xml", "")
	s.Require().Error(err)
	s.True(errors.Is(err, errors.ErrInvalidNumericField))
}

func (s *ExtractorSuite) TestAbsentDocAmountDefaultsToZero() {
	doc := strings.Replace(
		invoiceXML(simpleLine(1, "1", "10.00")),
		"<ImportoTotaleDocumento>1525.40</ImportoTotaleDocumento>", "", 1)

	result, err := New(s.cfg).Extract(s.parse(doc), "in.xml", "")
	s.Require().NoError(err)
	s.True(result.Header.DocAmount.IsZero())
}

func (s *ExtractorSuite) TestNotAnInvoice() {
	_, err := New(s.cfg).Extract(s.parse(`<other><thing/></other>`), "in.xml", "")
	s.Require().Error(err)
	s.True(errors.Is(err, errors.ErrMissingHeaderField))
}
