package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSave_InsertAssignsID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := &JobRecord{Company: "Acme Corp", JobTitle: "Senior Go Developer"}
	require.NoError(t, s.Save(ctx, r))
	require.Positive(t, r.ID)
	require.Equal(t, ResponseNone, r.Response)
	require.False(t, r.Applied.IsZero())

	got, err := s.ByID(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Acme Corp", got.Company)
	require.Equal(t, "Senior Go Developer", got.JobTitle)
}

func TestSave_RequiresCompanyAndTitle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.Error(t, s.Save(ctx, &JobRecord{Company: "Acme Corp"}))
	require.Error(t, s.Save(ctx, &JobRecord{JobTitle: "Developer"}))
}

func TestSave_SwapsInvertedWages(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := &JobRecord{
		Company:  "Acme Corp",
		JobTitle: "Developer",
		WagesMin: 130000,
		WagesMax: 110000,
	}
	require.NoError(t, s.Save(ctx, r))

	got, err := s.ByID(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, 110000.0, got.WagesMin)
	require.Equal(t, 130000.0, got.WagesMax)
}

func TestSave_UpdateRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := &JobRecord{Company: "Acme Corp", JobTitle: "Developer"}
	require.NoError(t, s.Save(ctx, r))

	r.Response = ResponseInterview
	now := time.Now()
	r.Responded = &now
	r.AppendStatusCheck(now, "Recruiter reached out")
	r.AppendStatusCheck(now.Add(time.Hour), "Interview scheduled")
	require.NoError(t, s.Save(ctx, r))

	got, err := s.ByID(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, ResponseInterview, got.Response)
	require.NotNil(t, got.Responded)
	require.Len(t, got.StatusChecks, 2)
	require.Equal(t, "Recruiter reached out", got.StatusChecks[0].Note)
	require.Equal(t, "Interview scheduled", got.StatusChecks[1].Note)
}

func TestByExternalID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := &JobRecord{Company: "Acme Corp", JobTitle: "Developer", ExternalJobID: "4335742219"}
	require.NoError(t, s.Save(ctx, r))

	got, err := s.ByExternalID(ctx, "4335742219")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, r.ID, got.ID)

	missing, err := s.ByExternalID(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)

	empty, err := s.ByExternalID(ctx, "")
	require.NoError(t, err)
	require.Nil(t, empty)
}

func TestByCompanyTitle_CaseInsensitive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := &JobRecord{Company: "Acme Corp", JobTitle: "Senior Go Developer"}
	require.NoError(t, s.Save(ctx, r))

	got, err := s.ByCompanyTitle(ctx, "acme corp", "SENIOR GO DEVELOPER")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, r.ID, got.ID)
}

func TestLatestByCompany(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := &JobRecord{
		Company: "Acme Corp", JobTitle: "Developer",
		Applied: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	}
	newer := &JobRecord{
		Company: "Acme Corp", JobTitle: "Senior Developer",
		Applied: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))

	got, err := s.LatestByCompany(ctx, "acme corp")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, newer.ID, got.ID)
}

func TestListAndCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"A", "BB", "CCC"} {
		require.NoError(t, s.Save(ctx, &JobRecord{Company: "Acme", JobTitle: title}))
	}

	records, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := &JobRecord{Company: "Acme", JobTitle: "Dev"}
	require.NoError(t, s.Save(ctx, r))
	require.NoError(t, s.Delete(ctx, r.ID))

	got, err := s.ByID(ctx, r.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestLastImport_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.LastImport(ctx, "me@example.com")
	require.NoError(t, err)
	require.True(t, got.IsZero())

	stamp := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetLastImport(ctx, "me@example.com", stamp))

	got, err = s.LastImport(ctx, "me@example.com")
	require.NoError(t, err)
	require.True(t, got.Equal(stamp))

	// Upsert overwrites.
	later := stamp.Add(24 * time.Hour)
	require.NoError(t, s.SetLastImport(ctx, "me@example.com", later))
	got, err = s.LastImport(ctx, "me@example.com")
	require.NoError(t, err)
	require.True(t, got.Equal(later))
}

func TestResponsePriority(t *testing.T) {
	order := []Response{
		ResponseNone, ResponseRejected, ResponsePhoneScreen,
		ResponseInterview, ResponseOffer, ResponseHired,
	}
	for i := 1; i < len(order); i++ {
		require.Greater(t, order[i].Priority(), order[i-1].Priority(),
			"%s should outrank %s", order[i], order[i-1])
	}
	require.Equal(t, 0, Response("Other").Priority())
}

func TestSave_SingleCharFields(t *testing.T) {
	// One-letter values persist; the guard is emptiness, not length.
	s := openTestStore(t)
	require.NoError(t, s.Save(context.Background(), &JobRecord{Company: "X Y", JobTitle: "Z"}))
}
