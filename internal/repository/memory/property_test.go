package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/repository"
)

func testCreate(t *testing.T, s *PropertyStore, tenantID uuid.UUID, mutate func(*models.Property)) *models.Property {
	t.Helper()
	p := &models.Property{
		OwnerID:  uuid.New(),
		Title:    "Flat",
		Location: models.Location{Address: "1 Main St", City: "Lisbon", Country: "PT"},
		Price:    100000,
		Type:     models.TypeApartment,
	}
	if mutate != nil {
		mutate(p)
	}
	created, err := s.Create(context.Background(), tenantID, p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return created
}

func testPublished(t *testing.T, s *PropertyStore, tenantID uuid.UUID, mutate func(*models.Property)) *models.Property {
	t.Helper()
	p := testCreate(t, s, tenantID, func(p *models.Property) {
		p.Images = []string{"a.jpg"}
		if mutate != nil {
			mutate(p)
		}
	})
	published, err := s.Publish(context.Background(), tenantID, p.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	return published
}

func TestCreateForcesDraft(t *testing.T) {
	s := NewPropertyStore()
	tenant := uuid.New()

	p := testCreate(t, s, tenant, func(p *models.Property) {
		p.Status = models.StatusPublished
		p.Views = 40
		p.TenantID = uuid.New()
	})
	if p.Status != models.StatusDraft {
		t.Errorf("status = %q, want draft", p.Status)
	}
	if p.Views != 0 {
		t.Errorf("views = %d, want 0", p.Views)
	}
	if p.TenantID != tenant {
		t.Errorf("tenant = %v, want %v", p.TenantID, tenant)
	}
}

func TestGetByIDReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenant := uuid.New()
	p := testCreate(t, s, tenant, nil)

	got, _ := s.GetByID(ctx, tenant, p.ID)
	got.Title = "changed"

	again, _ := s.GetByID(ctx, tenant, p.ID)
	if again.Title != "Flat" {
		t.Errorf("title = %q, store shares memory with callers", again.Title)
	}
}

func TestTenantIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenantA, tenantB := uuid.New(), uuid.New()
	p := testPublished(t, s, tenantA, nil)

	got, err := s.GetByID(ctx, tenantB, p.ID)
	if err != nil || got != nil {
		t.Errorf("GetByID from other tenant = %v, %v", got, err)
	}

	page, err := s.List(ctx, tenantB, repository.PropertyFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("tenant B sees %d listings", page.Total)
	}

	if _, err := s.Archive(ctx, tenantB, p.ID); !apperr.IsNotFound(err) {
		t.Errorf("archive from other tenant err = %v, want not found", err)
	}
	if err := s.SoftDelete(ctx, tenantB, p.ID); !apperr.IsNotFound(err) {
		t.Errorf("delete from other tenant err = %v, want not found", err)
	}
	if _, err := s.AddFavorite(ctx, tenantB, p.ID, uuid.New()); !apperr.IsNotFound(err) {
		t.Errorf("favorite from other tenant err = %v, want not found", err)
	}
}

func TestSoftDeleteHides(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenant := uuid.New()
	p := testPublished(t, s, tenant, nil)

	if err := s.SoftDelete(ctx, tenant, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := s.GetByID(ctx, tenant, p.ID); got != nil {
		t.Error("deleted listing still returned")
	}
	if err := s.SoftDelete(ctx, tenant, p.ID); !apperr.IsNotFound(err) {
		t.Errorf("second delete err = %v, want not found", err)
	}
	m, _ := s.TenantMetrics(ctx, tenant)
	if m.Total != 0 {
		t.Errorf("metrics total = %d, want 0", m.Total)
	}
}

func TestUpdateRespectsEditLock(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenant := uuid.New()
	p := testPublished(t, s, tenant, nil)

	p.Title = "edited"
	_, err := s.Update(ctx, tenant, p)
	if err == nil || err.Error() != "published properties cannot be edited" {
		t.Fatalf("err = %v", err)
	}

	if _, err := s.Archive(ctx, tenant, p.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	updated, err := s.Update(ctx, tenant, p)
	if err != nil {
		t.Fatalf("update archived: %v", err)
	}
	if updated.Title != "edited" {
		t.Errorf("title = %q", updated.Title)
	}
	if updated.Status != models.StatusArchived {
		t.Errorf("update changed status to %q", updated.Status)
	}
}

func TestPublishWithoutImages(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenant := uuid.New()
	p := testCreate(t, s, tenant, nil)

	_, err := s.Publish(ctx, tenant, p.ID)
	if !apperr.IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}
	got, _ := s.GetByID(ctx, tenant, p.ID)
	if got.Status != models.StatusDraft {
		t.Errorf("status = %q, want draft", got.Status)
	}
}

func TestPublishRace(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenant := uuid.New()
	p := testCreate(t, s, tenant, func(p *models.Property) { p.Images = []string{"a.jpg"} })

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Publish(ctx, tenant, p.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperr.IsValidation(err):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || rejected != n-1 {
		t.Errorf("successes = %d, rejected = %d", successes, rejected)
	}
	got, _ := s.GetByID(ctx, tenant, p.ID)
	if got.Status != models.StatusPublished || len(got.Images) == 0 {
		t.Errorf("final state = %q with %d images", got.Status, len(got.Images))
	}
}

func TestFavoritesConcurrentInvariant(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenant := uuid.New()
	p := testPublished(t, s, tenant, nil)

	users := make([]uuid.UUID, 8)
	for i := range users {
		users[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for i, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				if _, err := s.AddFavorite(ctx, tenant, p.ID, u); err != nil {
					t.Errorf("add: %v", err)
				}
				if i%2 == 0 {
					if _, err := s.RemoveFavorite(ctx, tenant, p.ID, u); err != nil {
						t.Errorf("remove: %v", err)
					}
				}
			}
		}()
	}
	wg.Wait()

	got, _ := s.GetByID(ctx, tenant, p.ID)
	if got.FavoritesCount != int64(len(got.FavoritedBy)) {
		t.Fatalf("count = %d, set = %d", got.FavoritesCount, len(got.FavoritedBy))
	}
	if got.FavoritesCount != int64(len(users)/2) {
		t.Errorf("count = %d, want %d", got.FavoritesCount, len(users)/2)
	}
}

func TestFavoriteRequiresPublished(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenant := uuid.New()
	p := testCreate(t, s, tenant, nil)

	_, err := s.AddFavorite(ctx, tenant, p.ID, uuid.New())
	if err == nil || err.Error() != "only published properties can be favorited" {
		t.Errorf("err = %v", err)
	}
}

func TestListFavorites(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenant := uuid.New()
	u := uuid.New()
	liked := testPublished(t, s, tenant, nil)
	other := testPublished(t, s, tenant, nil)

	if _, err := s.AddFavorite(ctx, tenant, liked.ID, u); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.AddFavorite(ctx, tenant, other.ID, u); err != nil {
		t.Fatalf("add: %v", err)
	}
	// Archived favorites drop out of the list but keep their membership.
	if _, err := s.Archive(ctx, tenant, other.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	favs, err := s.ListFavorites(ctx, tenant, u, repository.Paging{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if favs.Total != 1 || len(favs.Data) != 1 || favs.Data[0].ID != liked.ID {
		t.Errorf("favorites = %+v", favs)
	}
	if ok, _ := s.IsFavorited(ctx, tenant, other.ID, u); !ok {
		t.Error("archived listing should still report favorited")
	}
}

func TestIncrementViewsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenant := uuid.New()
	p := testPublished(t, s, tenant, nil)
	u := uuid.New()

	counted := 0
	for range 5 {
		ok, err := s.IncrementViews(ctx, tenant, p.ID, u)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if ok {
			counted++
		}
	}
	if counted != 1 {
		t.Errorf("counted = %d, want 1", counted)
	}
	if ok, _ := s.IncrementViews(ctx, tenant, p.ID, uuid.Nil); ok {
		t.Error("anonymous view counted")
	}

	got, _ := s.GetByID(ctx, tenant, p.ID)
	if got.Views != 1 {
		t.Errorf("views = %d, want 1", got.Views)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenant := uuid.New()
	owner := uuid.New()

	lisbon := &models.Coordinates{Longitude: -9.1393, Latitude: 38.7223}
	nearby := &models.Coordinates{Longitude: -9.1450, Latitude: 38.7250}
	porto := &models.Coordinates{Longitude: -8.6291, Latitude: 41.1579}

	cheap := testPublished(t, s, tenant, func(p *models.Property) {
		p.Price = 90000
		p.Location.Coordinates = lisbon
	})
	pricey := testPublished(t, s, tenant, func(p *models.Property) {
		p.Price = 900000
		p.Type = models.TypeVilla
		p.Location.Coordinates = nearby
	})
	north := testPublished(t, s, tenant, func(p *models.Property) {
		p.Price = 300000
		p.Location.City = "Porto"
		p.Location.Coordinates = porto
	})
	draft := testCreate(t, s, tenant, func(p *models.Property) { p.OwnerID = owner })

	published := models.StatusPublished
	villa := models.TypeVilla
	lo, hi := 150000.0, 500000.0

	tests := []struct {
		name string
		f    repository.PropertyFilter
		want []uuid.UUID
	}{
		{"published by price asc", repository.PropertyFilter{Status: &published, SortBy: repository.SortPrice}, []uuid.UUID{cheap.ID, north.ID, pricey.ID}},
		{"city substring", repository.PropertyFilter{Status: &published, City: "ort"}, []uuid.UUID{north.ID}},
		{"type", repository.PropertyFilter{Type: &villa}, []uuid.UUID{pricey.ID}},
		{"price range", repository.PropertyFilter{MinPrice: &lo, MaxPrice: &hi}, []uuid.UUID{north.ID}},
		{"near", repository.PropertyFilter{Near: lisbon, MaxDistance: 2000, SortBy: repository.SortPrice}, []uuid.UUID{cheap.ID, pricey.ID}},
		{"own drafts", repository.PropertyFilter{OwnDraftsOf: owner, SortBy: repository.SortPrice}, []uuid.UUID{cheap.ID, draft.ID, north.ID, pricey.ID}},
	}
	for _, tt := range tests {
		page, err := s.List(ctx, tenant, tt.f)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if len(page.Data) != len(tt.want) {
			t.Errorf("%s: got %d listings, want %d", tt.name, len(page.Data), len(tt.want))
			continue
		}
		for i, id := range tt.want {
			if page.Data[i].ID != id {
				t.Errorf("%s: [%d] = %v, want %v", tt.name, i, page.Data[i].ID, id)
			}
		}
	}
}

func TestListPaging(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenant := uuid.New()
	for range 25 {
		testCreate(t, s, tenant, nil)
	}

	page, err := s.List(ctx, tenant, repository.PropertyFilter{Page: 3, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 25 {
		t.Errorf("total = %d, want 25", page.Total)
	}
	if len(page.Data) != 5 {
		t.Errorf("page 3 has %d listings, want 5", len(page.Data))
	}

	empty, _ := s.List(ctx, tenant, repository.PropertyFilter{Page: 9, Limit: 10})
	if len(empty.Data) != 0 {
		t.Errorf("page 9 has %d listings", len(empty.Data))
	}
}

func TestTenantMetrics(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenant := uuid.New()

	p := testPublished(t, s, tenant, nil)
	testCreate(t, s, tenant, nil)
	if _, err := s.AddFavorite(ctx, tenant, p.ID, uuid.New()); err != nil {
		t.Fatalf("add favorite: %v", err)
	}
	if _, err := s.IncrementViews(ctx, tenant, p.ID, uuid.New()); err != nil {
		t.Fatalf("view: %v", err)
	}

	m, err := s.TenantMetrics(ctx, tenant)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.Total != 2 {
		t.Errorf("total = %d, want 2", m.Total)
	}
	if m.ByStatus[models.StatusPublished] != 1 || m.ByStatus[models.StatusDraft] != 1 {
		t.Errorf("by status = %v", m.ByStatus)
	}
	if m.TotalViews != 1 || m.TotalFavorites != 1 {
		t.Errorf("views = %d, favorites = %d", m.TotalViews, m.TotalFavorites)
	}
	if len(m.TopViewed) == 0 || m.TopViewed[0].ID != p.ID {
		t.Errorf("top viewed = %v", m.TopViewed)
	}
	if len(m.Recent) != 2 {
		t.Errorf("recent = %d entries, want 2", len(m.Recent))
	}
}

func TestListFavoritesPages(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenant := uuid.New()
	u := uuid.New()
	for range 3 {
		p := testPublished(t, s, tenant, nil)
		if _, err := s.AddFavorite(ctx, tenant, p.ID, u); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	second, err := s.ListFavorites(ctx, tenant, u, repository.Paging{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if second.Total != 3 || len(second.Data) != 1 || second.Page != 2 || second.Limit != 2 {
		t.Errorf("page 2 = %+v", second)
	}
}

func TestListByOwner(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenant := uuid.New()
	owner := uuid.New()
	mine := func(p *models.Property) { p.OwnerID = owner }

	testCreate(t, s, tenant, mine)
	testCreate(t, s, tenant, mine)
	published := testPublished(t, s, tenant, mine)
	disabled := testPublished(t, s, tenant, mine)
	if _, err := s.Disable(ctx, tenant, disabled.ID, uuid.New()); err != nil {
		t.Fatalf("disable: %v", err)
	}
	testCreate(t, s, tenant, nil)
	testCreate(t, s, uuid.New(), mine)

	tests := []struct {
		name      string
		f         repository.OwnerFilter
		wantTotal int64
		wantLen   int
	}{
		{"everything", repository.OwnerFilter{}, 4, 4},
		{"without disabled", repository.OwnerFilter{HideDisabled: true}, 3, 3},
		{"drafts only", repository.OwnerFilter{Status: ptr(models.StatusDraft)}, 2, 2},
		{"disabled hidden", repository.OwnerFilter{Status: ptr(models.StatusDisabled), HideDisabled: true}, 0, 0},
		{"second page", repository.OwnerFilter{Paging: repository.Paging{Page: 2, Limit: 3}}, 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListByOwner(ctx, tenant, owner, tt.f)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if got.Total != tt.wantTotal || len(got.Data) != tt.wantLen {
				t.Errorf("total = %d, len = %d, want %d, %d", got.Total, len(got.Data), tt.wantTotal, tt.wantLen)
			}
		})
	}

	first, _ := s.ListByOwner(ctx, tenant, owner, repository.OwnerFilter{})
	if first.Data[1].ID != published.ID {
		t.Errorf("second newest = %s, want %s", first.Data[1].ID, published.ID)
	}
}

func TestEngagementMetrics(t *testing.T) {
	ctx := context.Background()
	s := NewPropertyStore()
	tenant := uuid.New()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return now.AddDate(0, 0, -30) }
	old := testPublished(t, s, tenant, nil)
	if _, err := s.IncrementViews(ctx, tenant, old.ID, uuid.New()); err != nil {
		t.Fatalf("view: %v", err)
	}

	s.now = func() time.Time { return now }
	fresh := testPublished(t, s, tenant, nil)
	if _, err := s.AddFavorite(ctx, tenant, fresh.ID, uuid.New()); err != nil {
		t.Fatalf("favorite: %v", err)
	}
	testCreate(t, s, tenant, nil)
	gone := testPublished(t, s, tenant, nil)
	if err := s.SoftDelete(ctx, tenant, gone.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	testPublished(t, s, uuid.New(), nil)

	m, err := s.EngagementMetrics(ctx, tenant, now.AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.PropertiesCreated != 2 || m.PropertiesPublished != 1 {
		t.Errorf("created = %d, published = %d, want 2, 1", m.PropertiesCreated, m.PropertiesPublished)
	}
	if m.TotalViews != 1 || m.TotalFavorites != 1 {
		t.Errorf("views = %d, favorites = %d, want 1, 1", m.TotalViews, m.TotalFavorites)
	}
	if m.TenantID != tenant {
		t.Errorf("tenant = %s", m.TenantID)
	}
}

func ptr[T any](v T) *T { return &v }
