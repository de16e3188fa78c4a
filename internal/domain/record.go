package domain

const (
	DefaultContactPosition = "Company Manager"
	DefaultContactSource   = "BusinessList.com.ng"
)

// CompanySize is the employee-count bucket. The zero value means the page
// carried no employee count at all.
type CompanySize string

const (
	SizeSmall   CompanySize = "Small"
	SizeMedium  CompanySize = "Medium"
	SizeLarge   CompanySize = "Large"
	SizeUnknown CompanySize = "Unknown"
)

// BusinessRecord is one directory entry. Empty strings mean the field was
// not found on the page.
type BusinessRecord struct {
	CompanyName        string
	Location           string
	PhoneNumber        string
	WebsiteURL         string
	CompanySize        CompanySize
	PrimaryContactName string
	ContactPosition    string
	ContactSource      string
}

// NewBusinessRecord returns an empty record with the fixed contact defaults set.
func NewBusinessRecord() BusinessRecord {
	return BusinessRecord{
		ContactPosition: DefaultContactPosition,
		ContactSource:   DefaultContactSource,
	}
}

type QualifiedRecord struct {
	BusinessRecord
	State                  string
	ProximityQualification string
}
