package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Application status values. No transition graph is enforced; any status may
// be patched to any other.
const (
	StatusNotYetStarted = "not_yet_started"
	StatusApplied       = "applied"
	StatusInterviewing  = "interviewing"
	StatusOffered       = "offered"
	StatusRejected      = "rejected"
	StatusWithdrawn     = "withdrawn"
)

// ApplicationStatuses lists the accepted status values in presentation order.
var ApplicationStatuses = []string{
	StatusNotYetStarted,
	StatusApplied,
	StatusInterviewing,
	StatusOffered,
	StatusRejected,
	StatusWithdrawn,
}

// ValidApplicationStatus reports whether s is one of the enumerated statuses.
func ValidApplicationStatus(s string) bool {
	for _, v := range ApplicationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ValidChatRole reports whether role is one of the enumerated roles.
func ValidChatRole(role string) bool {
	return role == RoleUser || role == RoleAssistant || role == RoleSystem
}

// User anchors all per-account data. Accounts are provisioned from the
// external identity provider's subject claim.
type User struct {
	gorm.Model
	ExternalSubject string           `gorm:"uniqueIndex;size:128"`
	Email           string           `gorm:"size:255"`
	Profile         *Profile         `gorm:"constraint:OnDelete:CASCADE"`
	Applications    []JobApplication `gorm:"constraint:OnDelete:CASCADE"`
	SavedJobs       []SavedJob       `gorm:"constraint:OnDelete:CASCADE"`
}

// Profile holds contact data and the ordered resume collections. At most one
// per user, enforced by the unique index on UserID.
type Profile struct {
	gorm.Model
	UserID        uint   `gorm:"uniqueIndex"`
	Name          string `gorm:"size:255"`
	Email         string `gorm:"size:255"`
	Phone         string `gorm:"size:64"`
	Location      string `gorm:"size:255"`
	LinkedInURL   string `gorm:"size:512"`
	GitHubURL     string `gorm:"size:512"`
	Summary       string `gorm:"type:text"`
	EnrichmentRaw datatypes.JSON `gorm:"type:jsonb"`
	ResumePDFKey  string `gorm:"size:512"`
	Skills        []Skill      `gorm:"constraint:OnDelete:CASCADE"`
	Experience    []Experience `gorm:"constraint:OnDelete:CASCADE"`
	Education     []Education  `gorm:"constraint:OnDelete:CASCADE"`
}

// Skill categories used to partition resume skill lists.
const (
	SkillTechnical = "technical"
	SkillSoft      = "soft"
)

// Skill is an ordered profile skill entry.
type Skill struct {
	gorm.Model
	ProfileID uint   `gorm:"index"`
	Name      string `gorm:"size:128"`
	Category  string `gorm:"size:32"`
	Position  int    `gorm:"index"`
}

// Experience is an ordered work history entry. Achievements are stored as
// newline-separated free text and split for rendering.
type Experience struct {
	gorm.Model
	ProfileID    uint   `gorm:"index"`
	Title        string `gorm:"size:255"`
	Company      string `gorm:"size:255"`
	Location     string `gorm:"size:255"`
	StartDate    string `gorm:"size:32"`
	EndDate      string `gorm:"size:32"`
	Achievements string `gorm:"type:text"`
	Position     int    `gorm:"index"`
}

// Education is an ordered education entry.
type Education struct {
	gorm.Model
	ProfileID uint   `gorm:"index"`
	School    string `gorm:"size:255"`
	Degree    string `gorm:"size:255"`
	Field     string `gorm:"size:255"`
	StartDate string `gorm:"size:32"`
	EndDate   string `gorm:"size:32"`
	Position  int    `gorm:"index"`
}

// Job is a listing. External jobs are identified by (Platform, ExternalID);
// the partial unique index is what keeps concurrent upserts from creating
// duplicates. Internal jobs carry no natural key and stay out of the index.
type Job struct {
	gorm.Model
	Platform    string `gorm:"size:64;uniqueIndex:idx_platform_external_id,where:is_external"`
	ExternalID  string `gorm:"size:255;uniqueIndex:idx_platform_external_id,where:is_external"`
	Title       string `gorm:"size:255"`
	Company     string `gorm:"size:255"`
	Location    string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	Salary      string `gorm:"size:128"`
	JobType     string `gorm:"size:64"`
	URL         string `gorm:"size:1024"`
	PostedAt    *time.Time
	IsExternal  bool `gorm:"default:false"`
}

// JobApplication links a user to a job. ResumeUsed and CoverLetter hold
// either free text or an object storage key.
type JobApplication struct {
	gorm.Model
	UserID      uint `gorm:"index;uniqueIndex:idx_user_job_application"`
	JobID       uint `gorm:"index;uniqueIndex:idx_user_job_application"`
	Job         Job  `gorm:"constraint:OnDelete:CASCADE"`
	Status      string `gorm:"size:32;default:'not_yet_started'"`
	Notes       string `gorm:"type:text"`
	ResumeUsed  string `gorm:"size:1024"`
	CoverLetter string `gorm:"type:text"`
	AppliedAt   *time.Time
}

// SavedJob is the (user, job) join row. The composite unique index makes
// save idempotent under concurrent duplicate requests.
type SavedJob struct {
	gorm.Model
	UserID uint `gorm:"index;uniqueIndex:idx_user_saved_job"`
	JobID  uint `gorm:"index;uniqueIndex:idx_user_saved_job"`
	Job    Job  `gorm:"constraint:OnDelete:CASCADE"`
}

// ChatConversation groups messages for a user. The job reference is weak:
// deleting the listing nulls it instead of cascading.
type ChatConversation struct {
	gorm.Model
	UserID   uint   `gorm:"index"`
	JobID    *uint  `gorm:"index"`
	Job      *Job   `gorm:"constraint:OnDelete:SET NULL"`
	Title    string `gorm:"size:255;default:'Untitled'"`
	Messages []ChatMessage `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// ChatMessage is a single conversation turn, replayed in CreatedAt order.
type ChatMessage struct {
	gorm.Model
	ConversationID uint   `gorm:"index"`
	Role           string `gorm:"size:16"`
	Content        string `gorm:"type:text"`
}

// AllModels is the auto-migration set, ordered parents first.
func AllModels() []any {
	return []any{
		&User{},
		&Profile{},
		&Skill{},
		&Experience{},
		&Education{},
		&Job{},
		&JobApplication{},
		&SavedJob{},
		&ChatConversation{},
		&ChatMessage{},
	}
}
