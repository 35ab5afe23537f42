package school

import (
	"strings"

	"github.com/mzalendo/darasa/core"
)

// Roles
const (
	// Admin
	RoleAdmin       = "admin:"
	RoleSuperAdmin  = "admin:super"
	RoleSchoolAdmin = "admin:school"

	// Teacher
	RoleTeacher = "teacher:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleSuperAdmin, RoleSchoolAdmin}
	TeacherRoles = []string{RoleTeacher}
	StudentRoles = []string{RoleStudent}
)

// RoleStartsWith reports whether any of roles falls under the given prefix.
func RoleStartsWith(roles []string, prefix string) bool {
	for _, role := range roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

// Entity types served by the school API.
const (
	TypeUser         = "user"
	TypeStudent      = "student"
	TypeTeacher      = "teacher"
	TypeClass        = "class"
	TypeSubject      = "subject"
	TypeEnrollment   = "enrollment"
	TypeAttendance   = "attendance"
	TypeExam         = "exam"
	TypeGrade        = "grade"
	TypeFee          = "fee"
	TypePeriod       = "period"
	TypeAnnouncement = "announcement"
)

// Dependents declares which collections a confirmed mutation invalidates
// besides its own. Creating or deleting an enrollment changes class occupancy
// counts, so classes are refetched too.
var Dependents = map[string][]string{
	TypeEnrollment: {TypeClass},
}

// NewEnrollment contains information needed to enroll a student in a class.
type NewEnrollment struct {
	StudentID int `json:"student_id" validate:"required,min=1"`
	ClassID   int `json:"class_id" validate:"required,min=1"`
}

func (ne NewEnrollment) Validate() error { return core.Validate.Struct(ne) }

// RecordAttendance marks one student's attendance for one day.
type RecordAttendance struct {
	StudentID int    `json:"student_id" validate:"required,min=1"`
	ClassID   int    `json:"class_id" validate:"required,min=1"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Status    string `json:"status" validate:"required,oneof=present absent late"`
}

func (ra *RecordAttendance) Validate() error {
	ra.Status = core.CleanString(ra.Status, true /* lower */)
	return core.Validate.Struct(ra)
}

// NewFee defines a fee charged to a student.
type NewFee struct {
	StudentID int     `json:"student_id" validate:"required,min=1"`
	ClassID   int     `json:"class_id" validate:"omitempty,min=1"`
	Title     string  `json:"title" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	DueDate   string  `json:"due_date" validate:"required,datetime=2006-01-02"`
}

func (nf *NewFee) Validate() error {
	nf.Title = core.CleanString(nf.Title)
	return core.Validate.Struct(nf)
}

// NewGrade records a student's score on an exam.
type NewGrade struct {
	StudentID int     `json:"student_id" validate:"required,min=1"`
	SubjectID int     `json:"subject_id" validate:"required,min=1"`
	ExamID    int     `json:"exam_id" validate:"required,min=1"`
	Score     float64 `json:"score" validate:"min=0"`
	MaxScore  float64 `json:"max_score" validate:"required,gt=0,gtefield=Score"`
	Letter    string  `json:"letter" validate:"omitempty,gradeletter"`
}

func (ng *NewGrade) Validate() error {
	ng.Letter = core.CleanString(ng.Letter, true)
	ng.Letter = strings.ToUpper(ng.Letter)
	return core.Validate.Struct(ng)
}

// NewPeriod places a subject/teacher slot on a class timetable.
type NewPeriod struct {
	ClassID   int    `json:"class_id" validate:"required,min=1"`
	SubjectID int    `json:"subject_id" validate:"required,min=1"`
	TeacherID int    `json:"teacher_id" validate:"omitempty,min=1"`
	Day       int    `json:"day" validate:"required,min=1,max=7"` // 1 = Monday
	StartTime string `json:"start_time" validate:"required,clocktime"`
	EndTime   string `json:"end_time" validate:"required,clocktime"`
}

func (np NewPeriod) Validate() error { return core.Validate.Struct(np) }

// NewAnnouncement publishes a notice to a dashboard audience.
type NewAnnouncement struct {
	Title    string `json:"title" validate:"required"`
	Body     string `json:"body" validate:"required"`
	Audience string `json:"audience" validate:"required,oneof=all admins teachers students"`
}

func (na *NewAnnouncement) Validate() error {
	na.Title = core.CleanString(na.Title)
	na.Audience = core.CleanString(na.Audience, true /* lower */)
	return core.Validate.Struct(na)
}
