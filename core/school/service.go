package school

import (
	"context"
	"sort"
	"time"

	"github.com/mzalendo/darasa/core"
	"github.com/mzalendo/darasa/core/assemble"
	"github.com/mzalendo/darasa/core/entity"
	"github.com/mzalendo/darasa/core/mutate"
)

var nowFunc = time.Now // mockable

type Service struct {
	cache    *entity.Cache
	resolver *assemble.Resolver
	coord    *mutate.Coordinator
	logger   core.Logger
}

func NewService(cache *entity.Cache, writer mutate.Writer, logger core.Logger) *Service {
	return &Service{
		cache:    cache,
		resolver: assemble.NewResolver(cache, logger),
		coord:    mutate.NewCoordinator(writer, cache, Dependents, logger),
		logger:   logger,
	}
}

// Loads

func (svc *Service) LoadRoster(ctx context.Context, classID int, search string) ([]assemble.ViewRow, error) {
	rows, err := svc.resolver.Resolve(ctx, RosterQuery(classID))
	if err != nil {
		return nil, err
	}
	view := assemble.Build(rows, RosterDerivations(), svc.logger)
	return assemble.Search(view, search, RosterSearchFields...), nil
}

func (svc *Service) LoadAttendanceSheet(ctx context.Context, classID int, date, search string) ([]assemble.ViewRow, error) {
	rows, err := svc.resolver.Resolve(ctx, AttendanceSheetQuery(classID, date))
	if err != nil {
		return nil, err
	}
	view := assemble.Build(rows, nil, svc.logger)
	return assemble.Search(view, search, AttendanceSearchFields...), nil
}

// AttendanceSummary is one student's aggregate over an attendance sheet.
type AttendanceSummary struct {
	Student assemble.Ref     `json:"student"`
	Present int              `json:"present"`
	Total   int              `json:"total_classes"`
	Percent assemble.Percent `json:"percent"`
}

// LoadAttendanceSummary groups a class's attendance records per student and
// derives each student's presence percentage.
func (svc *Service) LoadAttendanceSummary(ctx context.Context, classID int) ([]AttendanceSummary, error) {
	rows, err := svc.resolver.Resolve(ctx, AttendanceSheetQuery(classID, ""))
	if err != nil {
		return nil, err
	}

	byStudent := map[int]*AttendanceSummary{}
	order := []int{}
	for _, row := range rows {
		key := row.Root.Int("student_id")
		sum, ok := byStudent[key]
		if !ok {
			sum = &AttendanceSummary{Student: row.Ref(TypeStudent)}
			byStudent[key] = sum
			order = append(order, key)
		}
		sum.Total++
		if row.Root.String("status") == "present" {
			sum.Present++
		}
	}

	out := make([]AttendanceSummary, 0, len(byStudent))
	for _, key := range order {
		sum := byStudent[key]
		sum.Percent = assemble.Percent{Ratio: float64(sum.Present) / float64(sum.Total)}
		out = append(out, *sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Student.Label() < out[j].Student.Label()
	})
	return out, nil
}

func (svc *Service) LoadGradeBook(ctx context.Context, classID, subjectID int, search string) ([]assemble.ViewRow, error) {
	rows, err := svc.resolver.Resolve(ctx, GradeBookQuery(classID, subjectID))
	if err != nil {
		return nil, err
	}
	view := assemble.Build(rows, GradeBookDerivations(), svc.logger)
	return assemble.Search(view, search, GradeBookSearchFields...), nil
}

// TimetableDay is one weekday column of the timetable grid, periods ordered
// by start time.
type TimetableDay struct {
	Day     int                `json:"day"`
	Periods []assemble.ViewRow `json:"periods"`
}

// LoadTimetable assembles a class's timetable as a day-keyed grid.
func (svc *Service) LoadTimetable(ctx context.Context, classID int) ([]TimetableDay, error) {
	rows, err := svc.resolver.Resolve(ctx, TimetableQuery(classID))
	if err != nil {
		return nil, err
	}
	view := assemble.Build(rows, nil, svc.logger)

	var days []TimetableDay
	for _, row := range view {
		day := row.Root.Int("day")
		if len(days) == 0 || days[len(days)-1].Day != day {
			days = append(days, TimetableDay{Day: day})
		}
		last := &days[len(days)-1]
		last.Periods = append(last.Periods, row)
	}
	return days, nil
}

// FeeStatement is the assembled fee view plus its money aggregates.
type FeeStatement struct {
	Rows        []assemble.ViewRow `json:"rows"`
	TotalPaid   float64            `json:"total_paid"`
	Outstanding float64            `json:"outstanding"`
}

func (svc *Service) LoadFeeStatement(ctx context.Context, studentID int, search string) (FeeStatement, error) {
	rows, err := svc.resolver.Resolve(ctx, FeeStatementQuery(studentID))
	if err != nil {
		return FeeStatement{}, err
	}
	view := assemble.Build(rows, FeeDerivations(nowFunc), svc.logger)

	stmt := FeeStatement{Rows: assemble.Search(view, search, FeeSearchFields...)}
	for _, row := range view {
		amount := row.Root.Float("amount")
		if row.Root.Bool("paid") {
			stmt.TotalPaid += amount
		} else {
			stmt.Outstanding += amount
		}
	}
	return stmt, nil
}

func (svc *Service) LoadAnnouncements(ctx context.Context, audience, search string) ([]assemble.ViewRow, error) {
	rows, err := svc.resolver.Resolve(ctx, AnnouncementQuery(core.CleanString(audience, true)))
	if err != nil {
		return nil, err
	}
	view := assemble.Build(rows, nil, svc.logger)
	return assemble.Search(view, search, AnnouncementSearchFields...), nil
}

// Mutations. Each validates client-side, performs exactly one write through
// the coordinator and lets it invalidate the affected collections.

func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (mutate.Result, error) {
	if err := ne.Validate(); err != nil {
		return mutate.Result{}, err
	}
	return svc.coord.Submit(ctx, mutate.OpCreate, TypeEnrollment, 0, ne)
}

func (svc *Service) Withdraw(ctx context.Context, enrollmentID int) (mutate.Result, error) {
	return svc.coord.Submit(ctx, mutate.OpDelete, TypeEnrollment, enrollmentID, nil)
}

func (svc *Service) RecordAttendance(ctx context.Context, ra RecordAttendance) (mutate.Result, error) {
	if err := ra.Validate(); err != nil {
		return mutate.Result{}, err
	}
	return svc.coord.Submit(ctx, mutate.OpCreate, TypeAttendance, 0, ra)
}

func (svc *Service) ChargeFee(ctx context.Context, nf NewFee) (mutate.Result, error) {
	if err := nf.Validate(); err != nil {
		return mutate.Result{}, err
	}
	return svc.coord.Submit(ctx, mutate.OpCreate, TypeFee, 0, nf)
}

func (svc *Service) PayFee(ctx context.Context, feeID int) (mutate.Result, error) {
	payload := map[string]interface{}{"paid": true}
	return svc.coord.Submit(ctx, mutate.OpUpdate, TypeFee, feeID, payload)
}

func (svc *Service) PostGrade(ctx context.Context, ng NewGrade) (mutate.Result, error) {
	if err := ng.Validate(); err != nil {
		return mutate.Result{}, err
	}
	return svc.coord.Submit(ctx, mutate.OpCreate, TypeGrade, 0, ng)
}

func (svc *Service) SchedulePeriod(ctx context.Context, np NewPeriod) (mutate.Result, error) {
	if err := np.Validate(); err != nil {
		return mutate.Result{}, err
	}
	return svc.coord.Submit(ctx, mutate.OpCreate, TypePeriod, 0, np)
}

// PostAnnouncement publishes an announcement, optionally with a file
// attachment (sent as multipart form-data).
func (svc *Service) PostAnnouncement(ctx context.Context, na NewAnnouncement, attachment *mutate.File) (mutate.Result, error) {
	if err := na.Validate(); err != nil {
		return mutate.Result{}, err
	}
	var payload interface{} = na
	if attachment != nil {
		payload = &mutate.FilePayload{Fields: na, File: *attachment}
	}
	return svc.coord.Submit(ctx, mutate.OpCreate, TypeAnnouncement, 0, payload)
}

// ResetView discards all cached collections; in-flight loads for the old view
// are dropped on arrival.
func (svc *Service) ResetView() { svc.cache.Reset() }

// SectionError reports the last load failure for one collection, nil when
// healthy. Dashboards render it as a per-section "failed to load" notice.
func (svc *Service) SectionError(typ string) error { return svc.cache.Err(typ) }
