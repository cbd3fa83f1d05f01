// Tests for the clients table accessor.
package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/crm/pkg/types"
)

func strPtr(s string) *string { return &s }

func TestClientsTable_Create(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	c, err := b.Clients().Create(ctx, types.ClientCreate{
		Name:            "  Acme  ",
		Email:           strPtr(" ops@acme.test "),
		CreditAvailable: decimal.RequireFromString("1500.50"),
		Contacts: []types.ContactInput{
			{Kind: types.ContactKindPhone, Value: "+1 555 0100", Principal: true},
			{Kind: types.ContactKindEmail, Value: "sales@acme.test"},
		},
	})
	require.NoError(t, err)

	assert.Regexp(t, `^cli_[0-9a-f]{32}$`, c.ClientID)
	assert.Equal(t, "Acme", c.Name)
	assert.Equal(t, "ops@acme.test", *c.Email)
	assert.Equal(t, types.ClientStateProspect, c.State)
	assert.Equal(t, types.DefaultClientType, c.ClientType)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
	require.Len(t, c.Contacts, 2)
	assert.Regexp(t, `^cont_[0-9a-f]{32}$`, c.Contacts[0].ContactID)

	got, err := b.Clients().Get(ctx, c.ClientID)
	require.NoError(t, err)
	assert.True(t, got.CreditAvailable.Equal(decimal.RequireFromString("1500.5")))
	assert.Len(t, got.Contacts, 2)
	assert.True(t, got.Contacts[0].Principal, "principal contact sorts first")
	assert.Empty(t, got.Opportunities)
	assert.Empty(t, got.RecentActivities)
	assert.Nil(t, got.OnTimePaymentRate)
}

func TestClientsTable_CreateValidation(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   types.ClientCreate
		want error
	}{
		{"blank name", types.ClientCreate{Name: "   "}, types.ErrInvalidName},
		{"bad state", types.ClientCreate{Name: "A", State: "gone"}, types.ErrInvalidState},
		{"negative credit", types.ClientCreate{Name: "A", CreditAvailable: decimal.NewFromInt(-1)}, types.ErrInvalidAmount},
		{"bad contact", types.ClientCreate{Name: "A", Contacts: []types.ContactInput{{Kind: "fax", Value: "1"}}}, types.ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Clients().Create(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, types.IsValidation(err))
		})
	}

	_, total, err := b.Clients().List(ctx, types.ClientFilter{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total, "rejected creates store nothing")
}

func TestClientsTable_UniqueKeys(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	_, err := b.Clients().Create(ctx, types.ClientCreate{Name: "A", Email: strPtr("a@x.test"), TaxID: strPtr("T-1")})
	require.NoError(t, err)

	_, err = b.Clients().Create(ctx, types.ClientCreate{
		Name:     "B",
		Email:    strPtr(" a@x.test"),
		Contacts: []types.ContactInput{{Kind: types.ContactKindPhone, Value: "1"}},
	})
	assert.ErrorIs(t, err, types.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "email")

	_, err = b.Clients().Create(ctx, types.ClientCreate{Name: "C", TaxID: strPtr("T-1")})
	assert.ErrorIs(t, err, types.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "tax_id")

	// Clients without email or tax ID never collide.
	createClient(t, b, "D")
	createClient(t, b, "E")

	var contacts int
	require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM contacts").Scan(&contacts))
	assert.Zero(t, contacts, "failed create rolls back its contacts")
}

func TestClientsTable_GetMissing(t *testing.T) {
	b := setupBackend(t)
	_, err := b.Clients().Get(context.Background(), "cli_missing")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = b.Clients().Get(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestClientsTable_Exists(t *testing.T) {
	b := setupBackend(t)
	c := createClient(t, b, "A")

	ok, err := b.Clients().Exists(context.Background(), c.ClientID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Clients().Exists(context.Background(), "cli_missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientsTable_ListPagination(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	for i := range 5 {
		createClient(t, b, fmt.Sprintf("Client %d", i))
	}

	page, total, err := b.Clients().List(ctx, types.ClientFilter{Skip: 0, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page, 2)

	page, total, err = b.Clients().List(ctx, types.ClientFilter{Skip: 4, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page, 1)

	page, total, err = b.Clients().List(ctx, types.ClientFilter{Skip: 10, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, page)

	for _, bad := range []types.ClientFilter{{Limit: 0}, {Limit: 101}, {Skip: -1, Limit: 5}} {
		_, _, err := b.Clients().List(ctx, bad)
		assert.ErrorIs(t, err, types.ErrInvalidPage)
	}
}

func TestClientsTable_ListPagesCoverTotal(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	for i := range 4 {
		_, err := b.Clients().Create(ctx, types.ClientCreate{
			Name: fmt.Sprintf("Acme %d", i), State: types.ClientStateActive, Segment: strPtr("retail"),
		})
		require.NoError(t, err)
	}
	for i := range 3 {
		_, err := b.Clients().Create(ctx, types.ClientCreate{Name: fmt.Sprintf("Globex %d", i)})
		require.NoError(t, err)
	}
	// Clients sharing updated_at are ordered by client_id.
	_, err := b.db.ExecContext(ctx, "UPDATE clients SET updated_at = ? WHERE name LIKE 'Acme%'",
		formatTime(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	filters := []struct {
		name   string
		filter types.ClientFilter
		want   int
	}{
		{"no filter", types.ClientFilter{}, 7},
		{"state", types.ClientFilter{State: types.ClientStateActive}, 4},
		{"segment", types.ClientFilter{Segment: "retail"}, 4},
		{"search", types.ClientFilter{Search: "globex"}, 3},
	}
	for _, tt := range filters {
		for _, size := range []int{1, 2, 3} {
			t.Run(fmt.Sprintf("%s/limit %d", tt.name, size), func(t *testing.T) {
				f := tt.filter
				f.Limit = tt.want
				all, total, err := b.Clients().List(ctx, f)
				require.NoError(t, err)
				require.Equal(t, tt.want, total)

				var walked []string
				seen := map[string]bool{}
				for skip := 0; skip < total; skip += size {
					f.Skip, f.Limit = skip, size
					page, pageTotal, err := b.Clients().List(ctx, f)
					require.NoError(t, err)
					assert.Equal(t, total, pageTotal)
					for _, c := range page {
						assert.False(t, seen[c.ClientID], "client %s listed twice", c.ClientID)
						seen[c.ClientID] = true
						walked = append(walked, c.ClientID)
					}
				}

				want := make([]string, 0, len(all))
				for _, c := range all {
					want = append(want, c.ClientID)
				}
				assert.Len(t, walked, total)
				assert.Equal(t, want, walked)
			})
		}
	}
}

func TestClientsTable_ListFilters(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	_, err := b.Clients().Create(ctx, types.ClientCreate{Name: "ACME Corp", State: types.ClientStateActive, Segment: strPtr("retail")})
	require.NoError(t, err)
	_, err = b.Clients().Create(ctx, types.ClientCreate{Name: "Globex", Email: strPtr("info@acme-partner.test"), State: types.ClientStateActive})
	require.NoError(t, err)
	_, err = b.Clients().Create(ctx, types.ClientCreate{Name: "Initech", Segment: strPtr("retail")})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter types.ClientFilter
		want   int
	}{
		{"no filter", types.ClientFilter{}, 3},
		{"state", types.ClientFilter{State: types.ClientStateActive}, 2},
		{"segment", types.ClientFilter{Segment: "retail"}, 2},
		{"state and segment", types.ClientFilter{State: types.ClientStateActive, Segment: "retail"}, 1},
		{"search name case-insensitive", types.ClientFilter{Search: "acme"}, 2},
		{"search email", types.ClientFilter{Search: "partner"}, 1},
		{"wildcards match literally", types.ClientFilter{Search: "%"}, 0},
		{"underscore matches literally", types.ClientFilter{Search: "_"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Limit = types.DefaultListLimit
			page, total, err := b.Clients().List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
			assert.Len(t, page, tt.want)
		})
	}
}

func TestClientsTable_ListOrderAndHydration(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	first := createClient(t, b, "First")
	createClient(t, b, "Second")

	_, err := b.Clients().Update(ctx, first.ClientID, types.ClientUpdate{Notes: types.Some("touched")})
	require.NoError(t, err)

	for i := range 4 {
		_, err := b.Activities().Create(ctx, first.ClientID, types.ActivityInput{
			Kind:  types.ActivityKindCall,
			Title: fmt.Sprintf("call %d", i),
		})
		require.NoError(t, err)
	}

	page, _, err := b.Clients().List(ctx, types.ClientFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, first.ClientID, page[0].ClientID, "most recently updated first")
	assert.Len(t, page[0].RecentActivities, types.RecentActivitiesOnList)
	assert.NotNil(t, page[1].Contacts)
}

func TestClientsTable_Update(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	c, err := b.Clients().Create(ctx, types.ClientCreate{
		Name:     "Acme",
		Email:    strPtr("a@x.test"),
		Industry: strPtr("steel"),
		Notes:    strPtr("keep"),
	})
	require.NoError(t, err)

	got, err := b.Clients().Update(ctx, c.ClientID, types.ClientUpdate{
		State:    types.Some(types.ClientStateActive),
		Industry: types.Null[string](),
	})
	require.NoError(t, err)
	assert.Equal(t, types.ClientStateActive, got.State)
	assert.Nil(t, got.Industry, "null clears the column")
	assert.Equal(t, "keep", *got.Notes, "absent fields are untouched")
	assert.Equal(t, "a@x.test", *got.Email)
	assert.True(t, got.UpdatedAt.After(c.UpdatedAt))

	again, err := b.Clients().Update(ctx, c.ClientID, types.ClientUpdate{})
	require.NoError(t, err)
	assert.True(t, again.UpdatedAt.After(got.UpdatedAt), "empty update still refreshes updated_at")
	assert.Equal(t, c.CreatedAt, again.CreatedAt)
}

func TestClientsTable_UpdateErrors(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	_, err := b.Clients().Update(ctx, "cli_missing", types.ClientUpdate{Notes: types.Some("x")})
	assert.ErrorIs(t, err, types.ErrNotFound)

	a, err := b.Clients().Create(ctx, types.ClientCreate{Name: "A", Email: strPtr("a@x.test")})
	require.NoError(t, err)
	other := createClient(t, b, "B")

	_, err = b.Clients().Update(ctx, other.ClientID, types.ClientUpdate{Email: types.Some("a@x.test")})
	assert.ErrorIs(t, err, types.ErrDuplicateKey)

	_, err = b.Clients().Update(ctx, a.ClientID, types.ClientUpdate{Name: types.Null[string]()})
	assert.ErrorIs(t, err, types.ErrInvalidName)

	_, err = b.Clients().Update(ctx, a.ClientID, types.ClientUpdate{State: types.Some("gone")})
	assert.ErrorIs(t, err, types.ErrInvalidState)

	cleared, err := b.Clients().Update(ctx, a.ClientID, types.ClientUpdate{Email: types.Some("  ")})
	require.NoError(t, err)
	assert.Nil(t, cleared.Email, "blank email clears the column")
}

func TestClientsTable_DeleteCascades(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	c, err := b.Clients().Create(ctx, types.ClientCreate{
		Name:     "Acme",
		Contacts: []types.ContactInput{{Kind: types.ContactKindEmail, Value: "a@x.test"}},
	})
	require.NoError(t, err)
	_, err = b.Activities().Create(ctx, c.ClientID, types.ActivityInput{Kind: types.ActivityKindNote, Title: "hello"})
	require.NoError(t, err)
	_, err = b.Opportunities().Create(ctx, c.ClientID, types.OpportunityInput{
		Title:             "Deal",
		EstimatedValue:    decimal.NewFromInt(100),
		ExpectedCloseDate: time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)

	deleted, err := b.Clients().Delete(ctx, c.ClientID)
	require.NoError(t, err)
	assert.True(t, deleted)

	for _, table := range []string{"contacts", "activities", "opportunities"} {
		var n int
		require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, table)
	}

	deleted, err = b.Clients().Delete(ctx, c.ClientID)
	require.NoError(t, err)
	assert.False(t, deleted, "second delete reports nothing removed")

	_, err = b.Clients().Get(ctx, c.ClientID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClientsTable_FindByEmail(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	exact, err := b.Clients().Create(ctx, types.ClientCreate{Name: "Ana", Email: strPtr("ana@x.test")})
	require.NoError(t, err)
	_, err = b.Clients().Create(ctx, types.ClientCreate{Name: "Anabel", Email: strPtr("anabel@x.test")})
	require.NoError(t, err)

	got, err := b.Clients().FindByEmail(ctx, "ANA@X.TEST")
	require.NoError(t, err)
	assert.Equal(t, exact.ClientID, got.ClientID, "exact match wins over substring")

	got, err = b.Clients().FindByEmail(ctx, "anabel")
	require.NoError(t, err)
	assert.Equal(t, "Anabel", got.Name)

	_, err = b.Clients().FindByEmail(ctx, "nobody@y.test")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = b.Clients().FindByEmail(ctx, " ")
	assert.ErrorIs(t, err, types.ErrInvalidValue)
}

func TestClientsTable_FindByEmailPrefersRecentExactMatch(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	// The unique index is case-sensitive, so both rows can exist.
	upper, err := b.Clients().Create(ctx, types.ClientCreate{Name: "Upper", Email: strPtr("A@x.test")})
	require.NoError(t, err)
	lower, err := b.Clients().Create(ctx, types.ClientCreate{Name: "Lower", Email: strPtr("a@x.test")})
	require.NoError(t, err)

	_, err = b.Clients().Update(ctx, lower.ClientID, types.ClientUpdate{Notes: types.Some("touched")})
	require.NoError(t, err)
	got, err := b.Clients().FindByEmail(ctx, "a@X.test")
	require.NoError(t, err)
	assert.Equal(t, lower.ClientID, got.ClientID)

	_, err = b.Clients().Update(ctx, upper.ClientID, types.ClientUpdate{Notes: types.Some("touched")})
	require.NoError(t, err)
	got, err = b.Clients().FindByEmail(ctx, "a@X.test")
	require.NoError(t, err)
	assert.Equal(t, upper.ClientID, got.ClientID)
}

func TestClientsTable_UpdateUnderWriteContention(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	target := createClient(t, b, "Contended")

	const (
		updaters    = 8
		updatesEach = 25
		creators    = 4
		createsEach = 10
	)

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for i := range updaters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range updatesEach {
				_, err := b.Clients().Update(ctx, target.ClientID, types.ClientUpdate{
					Notes: types.Some(fmt.Sprintf("writer %d pass %d", i, j)),
				})
				record(err)
			}
		}()
	}
	for i := range creators {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range createsEach {
				_, err := b.Clients().Create(ctx, types.ClientCreate{Name: fmt.Sprintf("Creator %d-%d", i, j)})
				record(err)
				_, _, err = b.Clients().List(ctx, types.ClientFilter{Limit: 10})
				record(err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, errs, "writes must wait for the lock instead of failing")

	got, err := b.Clients().Get(ctx, target.ClientID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(target.UpdatedAt))

	_, total, err := b.Clients().List(ctx, types.ClientFilter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1+creators*createsEach, total)
}

func TestClientsTable_RecordMetricsAndStats(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	c := createClient(t, b, "Acme")

	rate := 85.0
	days := 12
	got, err := b.Clients().RecordMetrics(ctx, c.ClientID, types.ClientMetrics{
		TotalInvoiced:        decimal.NewFromInt(1000),
		InvoiceCount:         4,
		OnTimePaymentRate:    &rate,
		DaysSinceLastContact: &days,
	})
	require.NoError(t, err)
	assert.True(t, got.AverageSale.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, 4, got.InvoiceCount)
	require.NotNil(t, got.OnTimePaymentRate)
	assert.InDelta(t, 85.0, *got.OnTimePaymentRate, 0.0001)

	_, err = b.Opportunities().Create(ctx, c.ClientID, types.OpportunityInput{
		Title:             "Open",
		EstimatedValue:    decimal.NewFromInt(300),
		ExpectedCloseDate: time.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	_, err = b.Opportunities().Create(ctx, c.ClientID, types.OpportunityInput{
		Title:             "Won",
		State:             types.OpportunityStateWon,
		EstimatedValue:    decimal.NewFromInt(900),
		ExpectedCloseDate: time.Now(),
	})
	require.NoError(t, err)

	stats, err := b.Clients().Stats(ctx, c.ClientID)
	require.NoError(t, err)
	assert.Equal(t, types.HealthGood, stats.Health)
	assert.True(t, stats.OpenOpportunityValue.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, 0, stats.DaysSinceFirstContact)

	_, err = b.Clients().RecordMetrics(ctx, c.ClientID, types.ClientMetrics{InvoiceCount: -1})
	assert.ErrorIs(t, err, types.ErrInvalidMetrics)

	_, err = b.Clients().RecordMetrics(ctx, "cli_missing", types.ClientMetrics{})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = b.Clients().Stats(ctx, "cli_missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
