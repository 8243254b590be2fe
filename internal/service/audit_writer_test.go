package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/jobs"
)

func TestAuditWriterFlushesOnClose(t *testing.T) {
	repo := &mockAuditRepo{}
	writer := NewAuditWriter(repo, jobs.Config{Workers: 1, BufferSize: 8})

	for _, outcome := range []string{models.EnrollmentOutcomeEnrolled, models.EnrollmentOutcomeAlreadyEnrolled} {
		require.NoError(t, writer.Create(context.Background(), &models.EnrollmentAudit{CourseID: 10, Outcome: outcome}))
	}
	require.NoError(t, writer.Create(context.Background(), nil))
	require.NoError(t, writer.Close(context.Background()))

	require.Len(t, repo.entries, 2)
	assert.Equal(t, models.EnrollmentOutcomeEnrolled, repo.entries[0].Outcome)

	err := writer.Create(context.Background(), &models.EnrollmentAudit{CourseID: 11})
	assert.ErrorIs(t, err, jobs.ErrQueueStopped)
}

func TestEnrollmentServiceWithAuditWriter(t *testing.T) {
	srv, _, _, metrics := newEnrollmentFixture(t, `[]`)
	repo := &mockAuditRepo{}
	writer := NewAuditWriter(repo, jobs.Config{Workers: 1})
	svc := NewEnrollmentService(srv.Factory(t), writer, metrics, nil)

	_, err := svc.Enroll(context.Background(), enrollRequest())
	require.NoError(t, err)
	require.NoError(t, writer.Close(context.Background()))

	require.Len(t, repo.entries, 1)
	assert.Equal(t, "ada@example.com", repo.entries[0].Identifier)
	assert.Equal(t, int64(42), repo.entries[0].LMSUserID)
}
