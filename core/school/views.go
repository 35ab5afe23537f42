package school

import (
	"time"

	"github.com/mzalendo/darasa/core/assemble"
	"github.com/mzalendo/darasa/core/entity"
)

// The data shapes behind the recurring dashboard screens, declared once
// instead of re-joined ad hoc inside every component.

// RosterQuery joins class -> enrollments -> students. classID 0 keeps every
// class.
func RosterQuery(classID int) assemble.Query {
	q := assemble.Query{
		Root: TypeClass,
		Relations: []assemble.Relation{
			{Field: "class_id", Type: TypeEnrollment, Expand: true},
			{From: TypeEnrollment, Field: "student_id", Type: TypeStudent},
		},
	}
	if classID > 0 {
		q.RootIDs = []int{classID}
	}
	return q
}

// RosterDerivations computes class occupancy next to each roster row.
func RosterDerivations() []assemble.Derivation {
	return []assemble.Derivation{
		assemble.OccupancyPercent("occupancy", "current_enrollment", "capacity"),
	}
}

var RosterSearchFields = []assemble.SearchField{
	{Field: "name"},
	{Rel: TypeStudent, Field: "name"},
}

// AttendanceSheetQuery lists attendance records for a class, optionally for a
// single day, joined to student and class.
func AttendanceSheetQuery(classID int, date string) assemble.Query {
	return assemble.Query{
		Root: TypeAttendance,
		RootFilter: func(e entity.Entity) bool {
			if classID > 0 && e.Int("class_id") != classID {
				return false
			}
			return date == "" || e.String("date") == date
		},
		Relations: []assemble.Relation{
			{Field: "student_id", Type: TypeStudent},
			{Field: "class_id", Type: TypeClass},
		},
	}
}

var AttendanceSearchFields = []assemble.SearchField{
	{Rel: TypeStudent, Field: "name"},
	{Field: "status"},
}

// GradeBookQuery lists grades, narrowed by class and/or subject, joined to
// student, subject and exam.
func GradeBookQuery(classID, subjectID int) assemble.Query {
	return assemble.Query{
		Root: TypeGrade,
		RootFilter: func(e entity.Entity) bool {
			if classID > 0 && e.Int("class_id") != classID {
				return false
			}
			return subjectID == 0 || e.Int("subject_id") == subjectID
		},
		Relations: []assemble.Relation{
			{Field: "student_id", Type: TypeStudent},
			{Field: "subject_id", Type: TypeSubject},
			{Field: "exam_id", Type: TypeExam},
		},
	}
}

// GradeBookDerivations computes the percent score and the letter color bucket.
func GradeBookDerivations() []assemble.Derivation {
	return []assemble.Derivation{
		assemble.ScorePercent("percent", "score", "max_score"),
		assemble.GradeColor("color", "letter"),
	}
}

var GradeBookSearchFields = []assemble.SearchField{
	{Rel: TypeStudent, Field: "name"},
	{Rel: TypeSubject, Field: "name"},
	{Field: "letter"},
}

// TimetableQuery lists a class's periods joined to subject, teacher and
// class, ordered by day then start time.
func TimetableQuery(classID int) assemble.Query {
	return assemble.Query{
		Root: TypePeriod,
		RootFilter: func(e entity.Entity) bool {
			return classID == 0 || e.Int("class_id") == classID
		},
		Relations: []assemble.Relation{
			{Field: "subject_id", Type: TypeSubject},
			{Field: "teacher_id", Type: TypeTeacher},
			{Field: "class_id", Type: TypeClass},
		},
		Less: func(a, b assemble.Row) bool {
			if d1, d2 := a.Root.Int("day"), b.Root.Int("day"); d1 != d2 {
				return d1 < d2
			}
			return a.Root.String("start_time") < b.Root.String("start_time")
		},
	}
}

var TimetableSearchFields = []assemble.SearchField{
	{Rel: TypeSubject, Field: "name"},
	{Rel: TypeTeacher, Field: "name"},
}

// FeeStatementQuery lists fees, optionally for one student, joined to student
// and class.
func FeeStatementQuery(studentID int) assemble.Query {
	return assemble.Query{
		Root: TypeFee,
		RootFilter: func(e entity.Entity) bool {
			return studentID == 0 || e.Int("student_id") == studentID
		},
		Relations: []assemble.Relation{
			{Field: "student_id", Type: TypeStudent},
			{Field: "class_id", Type: TypeClass},
		},
	}
}

// FeeDerivations evaluates Paid/Overdue/Pending against now at build time.
func FeeDerivations(now func() time.Time) []assemble.Derivation {
	return []assemble.Derivation{
		assemble.FeeStatus("status", "paid", "due_date", now),
	}
}

var FeeSearchFields = []assemble.SearchField{
	{Field: "title"},
	{Rel: TypeStudent, Field: "name"},
	{Derived: true, Field: "status"},
}

// AnnouncementQuery lists announcements for an audience, newest first, joined
// to their author.
func AnnouncementQuery(audience string) assemble.Query {
	return assemble.Query{
		Root: TypeAnnouncement,
		RootFilter: func(e entity.Entity) bool {
			if audience == "" {
				return true
			}
			aud := e.String("audience")
			return aud == "" || aud == "all" || aud == audience
		},
		Relations: []assemble.Relation{
			{Field: "author_id", Type: TypeUser, Alias: "author"},
		},
		Less: func(a, b assemble.Row) bool {
			return a.Root.Time("created_at").After(b.Root.Time("created_at"))
		},
	}
}

var AnnouncementSearchFields = []assemble.SearchField{
	{Field: "title"},
	{Field: "body"},
	{Rel: "author", Field: ""}, // author label
}
