package businesslist

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"leadscout/internal/domain"
	"leadscout/internal/scrape/locate"
)

// ExtractionError means a whole detail page could not be turned into a
// record. Individual missing fields never produce one.
type ExtractionError struct {
	URL   string
	Cause any
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// Field locators for a businesslist.com.ng company page.
var (
	companyNameLoc = locate.Map(locate.Text("h1"), func(s string) string {
		return strings.TrimSpace(strings.SplitN(s, " - ", 2)[0])
	})
	locationLoc = locate.Text("div#company_address")
	phoneLoc    = locate.FirstOf(
		locate.LabelNext("div", "Contact number"),
		locate.LabelNext("div", "Mobile phone"),
	)
	websiteLoc   = locate.LabelNext("div", "Website")
	employeesLoc = locate.LabelParent("span.label", "Employees")
	managerLoc   = locate.ContainerWithLabel("div.info", "span.label", "Company manager")
)

type field struct {
	name string
	loc  locate.Locator
	set  func(r *domain.BusinessRecord, v string)
}

var fields = []field{
	{"company_name", companyNameLoc, func(r *domain.BusinessRecord, v string) { r.CompanyName = v }},
	{"location", locationLoc, func(r *domain.BusinessRecord, v string) { r.Location = v }},
	{"phone_number", phoneLoc, func(r *domain.BusinessRecord, v string) { r.PhoneNumber = v }},
	{"website_url", websiteLoc, func(r *domain.BusinessRecord, v string) { r.WebsiteURL = v }},
	{"company_size", employeesLoc, func(r *domain.BusinessRecord, v string) { r.CompanySize = ClassifySize(v) }},
	{"primary_contact_name", managerLoc, func(r *domain.BusinessRecord, v string) { r.PrimaryContactName = v }},
}

// ExtractDetails builds a record from a company page. Each field is located
// independently; a field whose locator fails is left empty. A failure
// outside the per-field isolation yields no record and an *ExtractionError.
func ExtractDetails(doc *goquery.Document, pageURL string, log *zap.Logger) (rec *domain.BusinessRecord, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("url", pageURL))

	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, &ExtractionError{URL: pageURL, Cause: r}
		}
	}()
	if doc == nil {
		return nil, &ExtractionError{URL: pageURL, Cause: "nil document"}
	}

	out := domain.NewBusinessRecord()
	for _, f := range fields {
		v, ok, p := locate.Run(f.loc, doc.Selection)
		if p != nil {
			log.Error("details: field locator failed", zap.String("field", f.name), zap.Any("panic", p))
			continue
		}
		if !ok {
			continue
		}
		f.set(&out, v)
		log.Debug("details: field found", zap.String("field", f.name), zap.String("value", v))
	}

	log.Debug("details: scraped", zap.Any("record", out))
	return &out, nil
}
