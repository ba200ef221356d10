package kyc

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
)

type fakeKYCRepo struct {
	records map[uuid.UUID]*entities.KYCRecord
	order   []uuid.UUID
}

func newFakeKYCRepo() *fakeKYCRepo {
	return &fakeKYCRepo{records: make(map[uuid.UUID]*entities.KYCRecord)}
}

func (r *fakeKYCRepo) Create(_ context.Context, record *entities.KYCRecord) error {
	r.records[record.ID] = record
	r.order = append(r.order, record.ID)
	return nil
}

func (r *fakeKYCRepo) GetByID(_ context.Context, id uuid.UUID) (*entities.KYCRecord, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, entities.ErrKYCNotFound
	}
	return record, nil
}

func (r *fakeKYCRepo) GetCurrentByUserID(_ context.Context, userID uuid.UUID) (*entities.KYCRecord, error) {
	// Most recent record wins, matching the store's ordering.
	for i := len(r.order) - 1; i >= 0; i-- {
		if record := r.records[r.order[i]]; record.UserID == userID {
			return record, nil
		}
	}
	return nil, entities.ErrKYCNotFound
}

func (r *fakeKYCRepo) Update(_ context.Context, record *entities.KYCRecord) error {
	if _, ok := r.records[record.ID]; !ok {
		return entities.ErrKYCNotFound
	}
	r.records[record.ID] = record
	return nil
}

func (r *fakeKYCRepo) ListByStatus(_ context.Context, status entities.KYCStatus, limit, offset int) ([]*entities.KYCRecord, error) {
	var out []*entities.KYCRecord
	for _, id := range r.order {
		if r.records[id].Status == status {
			out = append(out, r.records[id])
		}
	}
	return out, nil
}

func (r *fakeKYCRepo) ListExpiring(_ context.Context, before time.Time, limit int) ([]*entities.KYCRecord, error) {
	var out []*entities.KYCRecord
	for _, id := range r.order {
		record := r.records[id]
		if record.Status == entities.KYCStatusVerified && record.ExpiresAt != nil && record.ExpiresAt.Before(before) {
			out = append(out, record)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeDocStore struct {
	stored int
	fail   error
}

func (s *fakeDocStore) Store(_ context.Context, userID uuid.UUID, docType string, _ []byte) (string, error) {
	if s.fail != nil {
		return "", s.fail
	}
	s.stored++
	return fmt.Sprintf("file:///kyc/%s/%s-%d.jpg", userID, docType, s.stored), nil
}

type decision struct {
	userID   uuid.UUID
	approved bool
	reason   string
}

type fakeDecisionNotifier struct {
	decisions []decision
}

func (n *fakeDecisionNotifier) NotifyKYCDecision(_ context.Context, userID uuid.UUID, approved bool, reason string) error {
	n.decisions = append(n.decisions, decision{userID, approved, reason})
	return nil
}

var kycNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newKYCFixture() (*Service, *fakeKYCRepo, *fakeDocStore, *fakeDecisionNotifier) {
	repo := newFakeKYCRepo()
	store := &fakeDocStore{}
	notifier := &fakeDecisionNotifier{}
	svc := NewService(repo, store, zap.NewNop())
	svc.SetNotifier(notifier)
	svc.SetClock(func() time.Time { return kycNow })
	return svc, repo, store, notifier
}

func sampleImage() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))
}

func sampleSubmission(userID uuid.UUID) SubmitRequest {
	return SubmitRequest{
		UserID: userID,
		PersonalInfo: entities.KYCPersonalInfo{
			FirstName:   "Amina",
			LastName:    "Diallo",
			Nationality: "SN",
			Country:     "SN",
		},
		Documents: []DocumentUpload{
			{Type: "passport", Image: sampleImage()},
		},
	}
}

func TestSubmitCreatesSubmittedRecord(t *testing.T) {
	svc, _, store, _ := newKYCFixture()
	userID := uuid.New()

	record, err := svc.Submit(context.Background(), sampleSubmission(userID))
	require.NoError(t, err)

	assert.Equal(t, entities.KYCStatusSubmitted, record.Status)
	require.Len(t, record.Documents, 1)
	assert.Equal(t, entities.KYCDocumentPending, record.Documents[0].Status)
	assert.NotEmpty(t, record.Documents[0].FileURL)
	assert.Equal(t, 1, store.stored)
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _, _ := newKYCFixture()
	userID := uuid.New()

	noName := sampleSubmission(userID)
	noName.PersonalInfo.FirstName = "  "
	_, err := svc.Submit(context.Background(), noName)
	assert.ErrorIs(t, err, entities.ErrValidation)

	noDocs := sampleSubmission(userID)
	noDocs.Documents = nil
	_, err = svc.Submit(context.Background(), noDocs)
	assert.ErrorIs(t, err, entities.ErrValidation)

	badType := sampleSubmission(userID)
	badType.Documents[0].Type = "library_card"
	_, err = svc.Submit(context.Background(), badType)
	assert.ErrorIs(t, err, entities.ErrValidation)

	badImage := sampleSubmission(userID)
	badImage.Documents[0].Image = "not-a-data-uri"
	_, err = svc.Submit(context.Background(), badImage)
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestSubmitOverLiveReviewRejected(t *testing.T) {
	svc, _, _, _ := newKYCFixture()
	userID := uuid.New()

	_, err := svc.Submit(context.Background(), sampleSubmission(userID))
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), sampleSubmission(userID))
	require.ErrorIs(t, err, ErrSubmissionPending)
	assert.ErrorIs(t, err, entities.ErrInvalidState)
}

func TestSubmitOverValidVerificationRejected(t *testing.T) {
	svc, _, _, _ := newKYCFixture()
	userID := uuid.New()

	record, err := svc.Submit(context.Background(), sampleSubmission(userID))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), record.ID, uuid.New())
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), sampleSubmission(userID))
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestResubmissionAfterRejectionCreatesNewRecord(t *testing.T) {
	svc, _, _, _ := newKYCFixture()
	userID := uuid.New()

	first, err := svc.Submit(context.Background(), sampleSubmission(userID))
	require.NoError(t, err)
	_, err = svc.Reject(context.Background(), first.ID, uuid.New(), "document illegible")
	require.NoError(t, err)

	second, err := svc.Submit(context.Background(), sampleSubmission(userID))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	status, err := svc.GetStatus(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, status.ID, "the new record supersedes the rejected one")
}

func TestApproveSetsTwoYearExpiry(t *testing.T) {
	svc, _, _, notifier := newKYCFixture()
	userID := uuid.New()
	reviewerID := uuid.New()

	record, err := svc.Submit(context.Background(), sampleSubmission(userID))
	require.NoError(t, err)

	_, err = svc.StartReview(context.Background(), record.ID, reviewerID)
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), record.ID, reviewerID)
	require.NoError(t, err)

	assert.Equal(t, entities.KYCStatusVerified, approved.Status)
	require.NotNil(t, approved.ExpiresAt)
	assert.Equal(t, kycNow.Add(2*365*24*time.Hour), *approved.ExpiresAt)
	assert.Equal(t, entities.KYCDocumentApproved, approved.Documents[0].Status)

	require.Len(t, notifier.decisions, 1)
	assert.True(t, notifier.decisions[0].approved)
}

func TestRejectRequiresReason(t *testing.T) {
	svc, _, _, _ := newKYCFixture()

	record, err := svc.Submit(context.Background(), sampleSubmission(uuid.New()))
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), record.ID, uuid.New(), "   ")
	require.ErrorIs(t, err, ErrRejectNeedsReason)
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestRejectNotifiesWithReason(t *testing.T) {
	svc, _, _, notifier := newKYCFixture()
	userID := uuid.New()

	record, err := svc.Submit(context.Background(), sampleSubmission(userID))
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), record.ID, uuid.New(), "photo mismatch")
	require.NoError(t, err)

	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "photo mismatch", *rejected.RejectionReason)
	require.Len(t, notifier.decisions, 1)
	assert.False(t, notifier.decisions[0].approved)
	assert.Equal(t, "photo mismatch", notifier.decisions[0].reason)
}

func TestDecisionOnTerminalRecordRejected(t *testing.T) {
	svc, _, _, _ := newKYCFixture()

	record, err := svc.Submit(context.Background(), sampleSubmission(uuid.New()))
	require.NoError(t, err)
	_, err = svc.Reject(context.Background(), record.ID, uuid.New(), "expired document")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), record.ID, uuid.New())
	assert.ErrorIs(t, err, entities.ErrInvalidState)

	_, err = svc.StartReview(context.Background(), record.ID, uuid.New())
	assert.ErrorIs(t, err, entities.ErrInvalidState)
}

func TestIsVerifiedRespectsExpiry(t *testing.T) {
	svc, _, _, _ := newKYCFixture()
	userID := uuid.New()

	ok, err := svc.IsVerified(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, ok, "never submitted")

	record, err := svc.Submit(context.Background(), sampleSubmission(userID))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), record.ID, uuid.New())
	require.NoError(t, err)

	ok, err = svc.IsVerified(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, ok)

	svc.SetClock(func() time.Time { return kycNow.Add(2*365*24*time.Hour + time.Hour) })
	ok, err = svc.IsVerified(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, ok, "verification lapses at expiry even before the sweep runs")
}

func TestGetStatusReturnsPendingShell(t *testing.T) {
	svc, _, _, _ := newKYCFixture()
	userID := uuid.New()

	status, err := svc.GetStatus(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, entities.KYCStatusPending, status.Status)
	assert.Equal(t, userID, status.UserID)
}

func TestExpireStale(t *testing.T) {
	svc, repo, _, _ := newKYCFixture()
	userID := uuid.New()

	record, err := svc.Submit(context.Background(), sampleSubmission(userID))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), record.ID, uuid.New())
	require.NoError(t, err)

	// Nothing has lapsed yet.
	count, err := svc.ExpireStale(context.Background(), 100)
	require.NoError(t, err)
	assert.Zero(t, count)

	svc.SetClock(func() time.Time { return kycNow.Add(2*365*24*time.Hour + time.Hour) })
	count, err = svc.ExpireStale(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := repo.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.KYCStatusExpired, stored.Status)

	// Expiry is terminal: the user resubmits from scratch.
	_, err = svc.Submit(context.Background(), sampleSubmission(userID))
	assert.NoError(t, err)
}
