package labresult

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelog/carelog/internal/domain/timeline"
	"github.com/carelog/carelog/internal/platform/auth"
	"github.com/carelog/carelog/internal/platform/blobstore"
	"github.com/carelog/carelog/internal/platform/notification"
	"github.com/carelog/carelog/internal/platform/telemetry"
	"github.com/carelog/carelog/pkg/recerr"
)

// DoctorDirectory resolves display names for notifications. Nil-safe at the
// call sites; lookups that fail fall back to the raw identifier.
type DoctorDirectory interface {
	DoctorName(ctx context.Context, id string) string
}

// Service coordinates the extraction-to-confirmation workflow. Every
// mutation re-reads the document, applies the transition, and commits
// through the repository's optimistic version check: a losing concurrent
// writer gets ConflictError and must re-read and retry. The service never
// retries internally and holds no lock while an extraction is in flight.
type Service struct {
	repo       Repository
	blobs      blobstore.Store
	clinicians auth.ClinicianChecker
	notifier   *notification.Engine
	timelines  *timeline.Service
	doctors    DoctorDirectory
	metrics    *telemetry.Metrics
	logger     zerolog.Logger
}

func NewService(
	repo Repository,
	blobs blobstore.Store,
	clinicians auth.ClinicianChecker,
	notifier *notification.Engine,
	timelines *timeline.Service,
	doctors DoctorDirectory,
	metrics *telemetry.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		blobs:      blobs,
		clinicians: clinicians,
		notifier:   notifier,
		timelines:  timelines,
		doctors:    doctors,
		metrics:    metrics,
		logger:     logger,
	}
}

// Upload stores the document and creates its TestResult in state uploaded,
// with no extraction record. The new result is pushed onto the patient's
// materialized timeline incrementally; if that fails the cached timeline is
// dropped so the next read rebuilds.
func (s *Service) Upload(ctx context.Context, patientID, doctorID string, test TestInfo, file FileInfo, content io.Reader) (*TestResult, error) {
	if patientID == "" {
		return nil, &recerr.ValidationError{Field: "patient_id", Reason: "must not be empty"}
	}

	stored, err := s.blobs.Put(ctx, blobstore.FileInfo{
		FileName:    file.Name,
		ContentType: file.ContentType,
	}, content)
	if err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}

	now := time.Now().UTC()
	tr := &TestResult{
		ID:        uuid.New().String(),
		PatientID: patientID,
		DoctorID:  doctorID,
		File: FileInfo{
			Name:        stored.FileName,
			ContentType: stored.ContentType,
			Size:        stored.Size,
			UploadedAt:  now,
			StorageRef:  stored.ID,
		},
		Test:      test,
		LabValues: []LabValue{},
		State:     StateUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, tr); err != nil {
		return nil, err
	}

	s.appendTimelineEvent(ctx, tr)
	s.notify(ctx, notification.Event{
		Type:         notification.EventResultUploaded,
		PatientID:    patientID,
		TestResultID: tr.ID,
		Recipient:    doctorID,
		Data:         map[string]string{"test_name": test.TestName},
	})
	return tr, nil
}

// appendTimelineEvent commits the upload onto the patient's stored timeline
// without a full rebuild. Best effort: the timeline is derived state, so any
// failure just invalidates it and the next read rebuilds.
func (s *Service) appendTimelineEvent(ctx context.Context, tr *TestResult) {
	if s.timelines == nil {
		return
	}
	title := tr.Test.TestName
	if title == "" {
		title = tr.File.Name
	}
	ev := timeline.TimelineEvent{
		ID:    tr.ID,
		Kind:  timeline.KindTestResult,
		Date:  tr.File.UploadedAt,
		Title: title,
		Ref:   timeline.EventRef{TestResultID: tr.ID},
	}

	if err := s.timelines.Append(ctx, tr.PatientID, ev); err != nil {
		s.logger.Warn().Err(err).
			Str("patient_id", tr.PatientID).
			Str("test_result_id", tr.ID).
			Msg("incremental timeline insert failed, invalidating")
		s.timelines.Invalidate(ctx, tr.PatientID)
	}
}

func (s *Service) notify(ctx context.Context, evt notification.Event) {
	if s.notifier == nil || evt.Recipient == "" {
		return
	}
	evt.OccurredAt = time.Now().UTC()
	if _, err := s.notifier.Notify(ctx, evt); err != nil {
		s.logger.Warn().Err(err).
			Str("event", evt.Type).
			Str("test_result_id", evt.TestResultID).
			Msg("notification delivery failed")
	}
}

func (s *Service) Get(ctx context.Context, id string) (*TestResult, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*TestResult, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// OpenFile streams the stored document for a test result.
func (s *Service) OpenFile(ctx context.Context, id string) (io.ReadCloser, *TestResult, error) {
	tr, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.blobs.Open(ctx, tr.File.StorageRef)
	if err != nil {
		return nil, nil, fmt.Errorf("opening stored document: %w", err)
	}
	return rc, tr, nil
}

// BeginExtraction marks the document extracting. Legal from uploaded,
// extracted, or confirmed; a document already extracting yields
// ConflictError so only one extraction runs per document. The prior state is
// remembered for AbortExtraction. No lock is held after this commits; the
// extraction itself runs outside the service.
func (s *Service) BeginExtraction(ctx context.Context, id, method string) (*TestResult, error) {
	tr, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tr.State == StateExtracting {
		return nil, &recerr.ConflictError{Entity: "test_result", ID: id, Reason: "extraction already in progress"}
	}
	if !beginFrom[tr.State] {
		return nil, &recerr.StateError{Entity: "test_result", ID: id, State: string(tr.State), Op: "beginExtraction"}
	}

	tr.PriorState = tr.State
	tr.State = StateExtracting
	tr.PendingMethod = method
	tr.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, tr); err != nil {
		return nil, err
	}
	s.countTransition(StateExtracting)
	return tr, nil
}

// CompleteExtraction replaces the extraction record and every lab value
// wholesale, classifies each candidate, and clears any prior confirmation.
// Legal only while extracting, which guards duplicate completions racing
// each other.
func (s *Service) CompleteExtraction(ctx context.Context, id, rawText string, candidates []Candidate) (*TestResult, error) {
	tr, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tr.State != StateExtracting {
		return nil, &recerr.StateError{Entity: "test_result", ID: id, State: string(tr.State), Op: "completeExtraction"}
	}

	now := time.Now().UTC()
	tr.Extraction = &ExtractionRecord{
		Extracted:   true,
		ExtractedAt: &now,
		Method:      tr.PendingMethod,
		RawText:     rawText,
	}

	values := make([]LabValue, 0, len(candidates))
	abnormal := 0
	for _, cand := range candidates {
		status := Classify(cand.Value, cand.ReferenceRange)
		if status == StatusBelow || status == StatusAbove {
			abnormal++
		}
		s.countClassification(status)
		values = append(values, LabValue{
			ID:             uuid.New().String(),
			TestName:       cand.TestName,
			Value:          FormatValue(cand.Value),
			Unit:           cand.Unit,
			ReferenceRange: cand.ReferenceRange,
			Status:         status,
			Notes:          cand.Notes,
			UploadedBy:     cand.UploadedBy,
			TestDate:       tr.Test.TestDate,
			OrderedBy:      tr.Test.OrderedBy,
			LabName:        tr.Test.LabName,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	tr.LabValues = values
	tr.State = StateExtracted
	tr.PriorState = ""
	tr.PendingMethod = ""
	tr.UpdatedAt = now

	if err := s.repo.Update(ctx, tr); err != nil {
		return nil, err
	}
	s.countTransition(StateExtracted)

	if abnormal > 0 {
		s.notify(ctx, notification.Event{
			Type:         notification.EventAbnormalValue,
			PatientID:    tr.PatientID,
			TestResultID: tr.ID,
			Recipient:    tr.DoctorID,
			Data:         map[string]string{"abnormal_count": fmt.Sprintf("%d", abnormal)},
		})
	}
	return tr, nil
}

// AbortExtraction returns a document stuck in extracting to the state that
// preceded it. Callers impose their own timeouts and invoke this on expiry.
func (s *Service) AbortExtraction(ctx context.Context, id string) (*TestResult, error) {
	tr, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tr.State != StateExtracting {
		return nil, &recerr.StateError{Entity: "test_result", ID: id, State: string(tr.State), Op: "abortExtraction"}
	}

	prior := tr.PriorState
	if prior == "" {
		prior = StateUploaded
	}
	tr.State = prior
	tr.PriorState = ""
	tr.PendingMethod = ""
	tr.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, tr); err != nil {
		return nil, err
	}
	s.countTransition("aborted")
	return tr, nil
}

// ConfirmExtraction stamps the clinician's confirmation on the current
// extraction record. Legal only from extracted; the actor must hold
// clinician capability.
func (s *Service) ConfirmExtraction(ctx context.Context, id, actorID string) (*TestResult, error) {
	tr, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tr.State != StateExtracted || tr.Extraction == nil {
		return nil, &recerr.StateError{Entity: "test_result", ID: id, State: string(tr.State), Op: "confirmExtraction"}
	}
	if s.clinicians != nil && !s.clinicians.IsClinician(ctx, actorID) {
		return nil, &recerr.PermissionError{ActorID: actorID, Op: "confirmExtraction"}
	}

	now := time.Now().UTC()
	tr.Extraction.Confirmed = true
	tr.Extraction.ConfirmedBy = actorID
	tr.Extraction.ConfirmedAt = &now
	tr.State = StateConfirmed
	tr.UpdatedAt = now

	if err := s.repo.Update(ctx, tr); err != nil {
		return nil, err
	}
	s.countTransition(StateConfirmed)

	if s.timelines != nil {
		// The rendered timeline shows the pre-confirmation result; drop it so
		// the next read reflects the confirmed document.
		s.timelines.Invalidate(ctx, tr.PatientID)
	}
	s.notify(ctx, notification.Event{
		Type:         notification.EventResultConfirmed,
		PatientID:    tr.PatientID,
		TestResultID: tr.ID,
		Recipient:    tr.PatientID,
		Data: map[string]string{
			"test_name": tr.Test.TestName,
			"clinician": s.doctorName(ctx, actorID),
		},
	})
	return tr, nil
}

func (s *Service) doctorName(ctx context.Context, id string) string {
	if s.doctors == nil {
		return id
	}
	if name := s.doctors.DoctorName(ctx, id); name != "" {
		return name
	}
	return id
}

// EditLabValue applies a partial update and reclassifies the value from
// scratch, so a value re-typed between numeric and textual never keeps a
// stale status. Legal in any state except extracting. Editing a value under
// a confirmed extraction does not revert the confirmation; it sets the
// value's audit flag instead.
func (s *Service) EditLabValue(ctx context.Context, id, labValueID string, patch LabValuePatch) (*LabValue, error) {
	tr, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tr.State == StateExtracting {
		return nil, &recerr.StateError{Entity: "test_result", ID: id, State: string(tr.State), Op: "editLabValue"}
	}
	lv := tr.findValue(labValueID)
	if lv == nil {
		return nil, &recerr.NotFoundError{Entity: "lab_value", ID: labValueID}
	}

	if patch.TestName != nil {
		lv.TestName = *patch.TestName
	}
	if patch.Value != nil {
		lv.Value = *patch.Value
	}
	if patch.Unit != nil {
		lv.Unit = *patch.Unit
	}
	if patch.ReferenceRange != nil {
		lv.ReferenceRange = *patch.ReferenceRange
	}
	if patch.Notes != nil {
		lv.Notes = *patch.Notes
	}

	lv.Status = Classify(lv.Value, lv.ReferenceRange)
	lv.UpdatedAt = time.Now().UTC()
	if tr.State == StateConfirmed {
		lv.ModifiedAfterConfirm = true
	}
	s.countClassification(lv.Status)

	if err := s.repo.Update(ctx, tr); err != nil {
		return nil, err
	}
	out := *lv
	return &out, nil
}

// ConfirmLabValue confirms one value independently of the parent
// extraction's confirmation.
func (s *Service) ConfirmLabValue(ctx context.Context, id, labValueID, actorID string) (*LabValue, error) {
	tr, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tr.State == StateExtracting {
		return nil, &recerr.StateError{Entity: "test_result", ID: id, State: string(tr.State), Op: "confirmLabValue"}
	}
	lv := tr.findValue(labValueID)
	if lv == nil {
		return nil, &recerr.NotFoundError{Entity: "lab_value", ID: labValueID}
	}

	now := time.Now().UTC()
	lv.Confirmed = true
	lv.ConfirmedBy = actorID
	lv.ConfirmedAt = &now
	lv.UpdatedAt = now

	if err := s.repo.Update(ctx, tr); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ValuesConfirmed.Inc()
	}
	out := *lv
	return &out, nil
}

func (s *Service) countTransition(state ExtractionState) {
	if s.metrics != nil {
		s.metrics.ExtractionTransitions.WithLabelValues(string(state)).Inc()
	}
}

func (s *Service) countClassification(status LabStatus) {
	if s.metrics != nil {
		s.metrics.ValuesClassified.WithLabelValues(string(status)).Inc()
	}
}
