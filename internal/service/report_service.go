package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"go-ecoforum/internal/event"
	"go-ecoforum/internal/model"
	"go-ecoforum/internal/util"
)

type reportStore interface {
	Create(ctx context.Context, report model.Report) (model.Report, error)
	FindByID(ctx context.Context, id int64) (model.Report, error)
	Finalize(ctx context.Context, id int64, status model.ReportStatus, resolverID *int64, note string, at time.Time) (model.Report, error)
	CountOpen(ctx context.Context, kind model.TargetKind, targetID int64) (int, error)
	ListByStatus(ctx context.Context, status model.ReportStatus, after *model.Cursor, limit int) ([]model.Report, error)
	PageByStatus(ctx context.Context, status model.ReportStatus, limit int, offset int) ([]model.Report, int, error)
}

type threadLookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
	AuthorOf(ctx context.Context, id int64) (int64, error)
}

type commentLookup interface {
	FindByID(ctx context.Context, id int64) (model.Comment, error)
}

const maxReportDescription = 2000

// ReportService runs the moderation report workflow: reports are filed in
// the reported state and move exactly once to resolved or rejected.
type ReportService struct {
	reports  reportStore
	threads  threadLookup
	comments commentLookup
	bus      event.Bus
	clock    Clock
}

func NewReportService(reports reportStore, threads threadLookup, comments commentLookup, bus event.Bus, clock Clock) *ReportService {
	if bus == nil {
		bus = event.Discard{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &ReportService{reports: reports, threads: threads, comments: comments, bus: bus, clock: clock}
}

// File stores a new report. Several reports against the same target are
// allowed; each counts as its own signal.
func (s *ReportService) File(ctx context.Context, in model.FileReport) (model.Report, error) {
	if err := validateTarget(in); err != nil {
		return model.Report{}, err
	}
	if !in.Reason.Valid() {
		return model.Report{}, fmt.Errorf("reason %q: %w", in.Reason, model.ErrInvalidInput)
	}
	if in.ReporterID <= 0 {
		return model.Report{}, fmt.Errorf("reporter id: %w", model.ErrInvalidInput)
	}

	description := util.CleanText(in.Description)
	if util.RuneLen(description) > maxReportDescription {
		return model.Report{}, fmt.Errorf("description longer than %d characters: %w", maxReportDescription, model.ErrInvalidInput)
	}

	now := s.clock.Now()
	report, err := s.reports.Create(ctx, model.Report{
		TargetKind:     in.TargetKind,
		TargetID:       in.TargetID,
		ThreadID:       in.ThreadID,
		CommentID:      in.CommentID,
		ContentOwnerID: in.ContentOwnerID,
		ReportedByID:   in.ReporterID,
		Reason:         in.Reason,
		Description:    description,
		Status:         model.ReportReported,
		ReportedAt:     now.UTC(),
	})
	if err != nil {
		return model.Report{}, err
	}

	slog.Info("report filed", "report_id", report.ID, "target_kind", report.TargetKind, "target_id", report.TargetID)
	s.bus.Publish(event.New(event.TypeReportFiled, report, &report.ReportedByID, now))
	return report, nil
}

// validateTarget enforces the tagged variant: a comment report carries the
// comment id (equal to the target id), a thread report carries none.
func validateTarget(in model.FileReport) error {
	if in.TargetID <= 0 || in.ThreadID <= 0 {
		return fmt.Errorf("target ids must be positive: %w", model.ErrInvalidTarget)
	}

	switch in.TargetKind {
	case model.TargetThread:
		if in.CommentID != nil {
			return fmt.Errorf("thread report with comment id: %w", model.ErrInvalidTarget)
		}
		if in.ThreadID != in.TargetID {
			return fmt.Errorf("thread report on %d filed under thread %d: %w", in.TargetID, in.ThreadID, model.ErrInvalidTarget)
		}
	case model.TargetComment:
		if in.CommentID == nil {
			return fmt.Errorf("comment report without comment id: %w", model.ErrInvalidTarget)
		}
		if *in.CommentID != in.TargetID {
			return fmt.Errorf("comment id %d differs from target %d: %w", *in.CommentID, in.TargetID, model.ErrInvalidTarget)
		}
	default:
		return fmt.Errorf("target kind %q: %w", in.TargetKind, model.ErrInvalidTarget)
	}
	return nil
}

// Submit files a report against stored content, looking up the owning thread
// and the content author.
func (s *ReportService) Submit(ctx context.Context, kind model.TargetKind, targetID int64, reporterID int64, reason model.ReportReason, description string) (model.Report, error) {
	in := model.FileReport{
		TargetKind:  kind,
		TargetID:    targetID,
		ReporterID:  reporterID,
		Reason:      reason,
		Description: description,
	}

	switch kind {
	case model.TargetThread:
		owner, err := s.threads.AuthorOf(ctx, targetID)
		if err != nil {
			return model.Report{}, err
		}
		in.ThreadID = targetID
		in.ContentOwnerID = owner
	case model.TargetComment:
		comment, err := s.comments.FindByID(ctx, targetID)
		if err != nil {
			return model.Report{}, err
		}
		in.ThreadID = comment.ThreadID
		in.CommentID = &comment.ID
		in.ContentOwnerID = comment.AuthorID
	default:
		return model.Report{}, fmt.Errorf("target kind %q: %w", kind, model.ErrInvalidTarget)
	}

	return s.File(ctx, in)
}

func (s *ReportService) Resolve(ctx context.Context, reportID int64, resolverID int64, note string) (model.Report, error) {
	return s.finalize(ctx, reportID, model.ReportResolved, resolverID, note)
}

func (s *ReportService) Reject(ctx context.Context, reportID int64, resolverID int64, note string) (model.Report, error) {
	return s.finalize(ctx, reportID, model.ReportRejected, resolverID, note)
}

func (s *ReportService) finalize(ctx context.Context, reportID int64, status model.ReportStatus, resolverID int64, note string) (model.Report, error) {
	now := s.clock.Now()
	resolver := model.Actor{UserID: resolverID}.Ref()

	report, err := s.reports.Finalize(ctx, reportID, status, resolver, util.CleanText(note), now.UTC())
	if err != nil {
		if errors.Is(err, model.ErrAlreadyFinalized) {
			slog.Warn("report already finalized", "report_id", reportID, "attempted", status)
		}
		return model.Report{}, err
	}

	eventType := event.TypeReportResolved
	if status == model.ReportRejected {
		eventType = event.TypeReportRejected
	}

	slog.Info("report finalized", "report_id", report.ID, "status", report.Status, "resolved_by", resolverID)
	s.bus.Publish(event.New(eventType, report, resolver, now))
	return report, nil
}

func (s *ReportService) Get(ctx context.Context, reportID int64) (model.Report, error) {
	return s.reports.FindByID(ctx, reportID)
}

// CountOpenReports counts the reports still awaiting a decision for a target.
func (s *ReportService) CountOpenReports(ctx context.Context, kind model.TargetKind, targetID int64) (int, error) {
	if _, ok := model.ParseTargetKind(string(kind)); !ok {
		return 0, fmt.Errorf("target kind %q: %w", kind, model.ErrInvalidTarget)
	}
	return s.reports.CountOpen(ctx, kind, targetID)
}

func (s *ReportService) Pending(ctx context.Context) iter.Seq2[model.Report, error] {
	return s.byStatus(ctx, model.ReportReported)
}

func (s *ReportService) Resolved(ctx context.Context) iter.Seq2[model.Report, error] {
	return s.byStatus(ctx, model.ReportResolved)
}

func (s *ReportService) Rejected(ctx context.Context) iter.Seq2[model.Report, error] {
	return s.byStatus(ctx, model.ReportRejected)
}

func (s *ReportService) byStatus(ctx context.Context, status model.ReportStatus) iter.Seq2[model.Report, error] {
	return keysetSeq(ctx, model.DefaultPageLimits.Default, func(ctx context.Context, after *model.Cursor, limit int) ([]model.Report, error) {
		return s.reports.ListByStatus(ctx, status, after, limit)
	})
}

// List is the offset-paginated listing; an empty status lists all reports.
func (s *ReportService) List(ctx context.Context, status model.ReportStatus, page model.PageQuery) ([]model.Report, model.Meta, error) {
	page = page.Normalize()
	reports, total, err := s.reports.PageByStatus(ctx, status, page.Limit, page.Offset())
	if err != nil {
		return nil, model.Meta{}, err
	}
	return reports, model.NewMeta(page.Page, page.Limit, total), nil
}
