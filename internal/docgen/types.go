package docgen

// Kind selects which document a Generate call produces.
type Kind string

const (
	KindResume      Kind = "resume"
	KindCoverLetter Kind = "coverLetter"
)

// Contact holds the header fields shared by both document kinds.
type Contact struct {
	Name        string
	Email       string
	Phone       string
	Location    string
	LinkedInURL string
	GitHubURL   string
}

// Skills is the resume skill list partitioned for rendering.
type Skills struct {
	Technical []string
	Soft      []string
}

// Experience is one work history entry. Achievements are already split into
// individual lines.
type Experience struct {
	Title        string
	Company      string
	Location     string
	StartDate    string
	EndDate      string
	Achievements []string
}

// Education is one education entry.
type Education struct {
	School    string
	Degree    string
	Field     string
	StartDate string
	EndDate   string
}

// DocumentData is the structured input for a Generate call. Collections keep
// their stored order. Body carries the cover letter paragraphs and is unused
// for resumes; JobDescription feeds the tailoring header when present.
type DocumentData struct {
	Contact        Contact
	Summary        string
	Skills         Skills
	Experience     []Experience
	Education      []Education
	Body           []string
	JobTitle       string
	JobCompany     string
	JobDescription string
	Date           string
}
