package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/db"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/repository"
	"go.uber.org/zap"
)

type testEnv struct {
	pool       *pgxpool.Pool
	properties *PropertyStore
	users      *UserStore
	tenantID   uuid.UUID
	ownerID    uuid.UUID
}

// testDB connects to TEST_DATABASE_URL, applies the schema and creates a
// fresh tenant with one owner. Tests skip when the variable is unset.
func testDB(t *testing.T) *testEnv {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	database, err := db.New(ctx, url, db.PoolSettings{MaxConns: 8, MinConns: 1}, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(database.Close)
	if err := database.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool := database.Pool()
	slug := "test-" + uuid.NewString()[:8]
	tenant, err := NewTenantStore(pool).Create(ctx, "Test Tenant", slug)
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	users := NewUserStore(pool)
	owner, err := users.Create(ctx, tenant.ID, slug+"@example.com", "Owner", "hash", "owner")
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}

	return &testEnv{
		pool:       pool,
		properties: NewPropertyStore(pool),
		users:      users,
		tenantID:   tenant.ID,
		ownerID:    owner.ID,
	}
}

func (e *testEnv) create(t *testing.T, images ...string) *models.Property {
	t.Helper()
	p, err := e.properties.Create(context.Background(), e.tenantID, &models.Property{
		OwnerID: e.ownerID,
		Title:   "Flat",
		Location: models.Location{
			Address:     "1 Main St",
			City:        "Lisbon",
			Country:     "PT",
			Coordinates: &models.Coordinates{Longitude: -9.1393, Latitude: 38.7223},
		},
		Price:  100000,
		Images: images,
		Type:   models.TypeApartment,
	})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	return p
}

func TestPostgresPublishRace(t *testing.T) {
	e := testDB(t)
	ctx := context.Background()
	p := e.create(t, "a.jpg")

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.properties.Publish(ctx, e.tenantID, p.ID)
			if err != nil && !apperr.IsValidation(err) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successes = %d, want 1", successes)
	}
	got, err := e.properties.GetByID(ctx, e.tenantID, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusPublished || got.PublishedAt == nil {
		t.Errorf("status = %q, publishedAt = %v", got.Status, got.PublishedAt)
	}
}

func TestPostgresEditLockAndExplainMiss(t *testing.T) {
	e := testDB(t)
	ctx := context.Background()
	p := e.create(t, "a.jpg")

	if _, err := e.properties.Publish(ctx, e.tenantID, p.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	p.Title = "edited"
	_, err := e.properties.Update(ctx, e.tenantID, p)
	if err == nil || err.Error() != "published properties cannot be edited" {
		t.Errorf("update published err = %v", err)
	}

	_, err = e.properties.Archive(ctx, uuid.New(), p.ID)
	if !apperr.IsNotFound(err) {
		t.Errorf("archive in other tenant err = %v, want not found", err)
	}

	if _, err := e.properties.Enable(ctx, e.tenantID, p.ID); err == nil || err.Error() != "only disabled properties can be enabled" {
		t.Errorf("enable published err = %v", err)
	}
}

func TestPostgresFavoritesAndViews(t *testing.T) {
	e := testDB(t)
	ctx := context.Background()
	p := e.create(t, "a.jpg")
	user := uuid.New()

	if _, err := e.properties.AddFavorite(ctx, e.tenantID, p.ID, user); err == nil {
		t.Error("favoriting a draft should fail")
	}
	if _, err := e.properties.Publish(ctx, e.tenantID, p.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for range 3 {
		got, err := e.properties.AddFavorite(ctx, e.tenantID, p.ID, user)
		if err != nil {
			t.Fatalf("add favorite: %v", err)
		}
		if got.FavoritesCount != 1 || len(got.FavoritedBy) != 1 {
			t.Fatalf("count = %d, set = %d", got.FavoritesCount, len(got.FavoritedBy))
		}
	}
	for range 2 {
		got, err := e.properties.RemoveFavorite(ctx, e.tenantID, p.ID, user)
		if err != nil {
			t.Fatalf("remove favorite: %v", err)
		}
		if got.FavoritesCount != 0 {
			t.Fatalf("count = %d, want 0", got.FavoritesCount)
		}
	}

	counted := 0
	for range 4 {
		ok, err := e.properties.IncrementViews(ctx, e.tenantID, p.ID, user)
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
}

func TestPostgresListNear(t *testing.T) {
	e := testDB(t)
	ctx := context.Background()
	e.create(t)

	center := models.Coordinates{Longitude: -9.1400, Latitude: 38.7220}
	page, err := e.properties.List(ctx, e.tenantID, repository.PropertyFilter{
		Near:        &center,
		MaxDistance: 500,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("total = %d, want 1", page.Total)
	}

	far := models.Coordinates{Longitude: -8.6291, Latitude: 41.1579}
	page, err = e.properties.List(ctx, e.tenantID, repository.PropertyFilter{Near: &far, MaxDistance: 500})
	if err != nil {
		t.Fatalf("list far: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("far total = %d, want 0", page.Total)
	}
}

func TestPostgresUserAdministration(t *testing.T) {
	e := testDB(t)
	ctx := context.Background()
	email := uuid.NewString() + "@example.com"

	u, err := e.users.Create(ctx, e.tenantID, email, "Agent", "hash", "user")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !u.IsActive {
		t.Error("new users should be active")
	}
	if _, err := e.users.Create(ctx, e.tenantID, email, "Twin", "hash", "user"); !apperr.IsConflict(err) {
		t.Errorf("duplicate email: err = %v, want conflict", err)
	}

	u.Role = "owner"
	u.DisplayName = "Agent Smith"
	updated, err := e.users.Update(ctx, e.tenantID, u)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Role != "owner" || updated.DisplayName != "Agent Smith" {
		t.Errorf("updated = %+v", updated)
	}

	off, err := e.users.ToggleActive(ctx, e.tenantID, u.ID)
	if err != nil || off.IsActive {
		t.Fatalf("toggle = %+v, %v", off, err)
	}
	if err := e.users.SetPassword(ctx, e.tenantID, u.ID, "new-hash"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if _, err := e.users.ToggleActive(ctx, uuid.New(), u.ID); !apperr.IsNotFound(err) {
		t.Errorf("toggle in another tenant: err = %v, want not found", err)
	}

	page, err := e.users.List(ctx, e.tenantID, repository.Paging{Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || len(page.Data) != 1 {
		t.Errorf("list = %d of %d, want 1 of 2", len(page.Data), page.Total)
	}

	if err := e.users.SoftDelete(ctx, e.tenantID, u.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if got, _ := e.users.GetByEmail(ctx, email); got != nil {
		t.Error("deleted user still found by email")
	}
	if err := e.users.SoftDelete(ctx, e.tenantID, u.ID); !apperr.IsNotFound(err) {
		t.Errorf("second delete: err = %v, want not found", err)
	}
	if _, err := e.users.Create(ctx, e.tenantID, email, "Rehired", "hash", "user"); err != nil {
		t.Errorf("email of a deleted user should be free: %v", err)
	}
}

func TestPostgresOwnerPagesAndEngagement(t *testing.T) {
	e := testDB(t)
	ctx := context.Background()
	start := time.Now().Add(-time.Minute)

	published := e.create(t, "a.jpg")
	if _, err := e.properties.Publish(ctx, e.tenantID, published.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := e.properties.IncrementViews(ctx, e.tenantID, published.ID, uuid.New()); err != nil {
		t.Fatalf("increment: %v", err)
	}
	e.create(t)
	e.create(t)

	page, err := e.properties.ListByOwner(ctx, e.tenantID, e.ownerID, repository.OwnerFilter{Paging: repository.Paging{Page: 2, Limit: 2}})
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if page.Total != 3 || len(page.Data) != 1 {
		t.Errorf("page 2 = %d of %d, want 1 of 3", len(page.Data), page.Total)
	}

	status := models.StatusPublished
	page, err = e.properties.ListByOwner(ctx, e.tenantID, e.ownerID, repository.OwnerFilter{Status: &status})
	if err != nil {
		t.Fatalf("list published: %v", err)
	}
	if page.Total != 1 || page.Data[0].ID != published.ID {
		t.Errorf("published = %+v", page)
	}

	m, err := e.properties.EngagementMetrics(ctx, e.tenantID, start)
	if err != nil {
		t.Fatalf("engagement: %v", err)
	}
	if m.PropertiesCreated != 3 || m.PropertiesPublished != 1 || m.TotalViews != 1 {
		t.Errorf("engagement = %+v", m)
	}

	m, err = e.properties.EngagementMetrics(ctx, e.tenantID, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("engagement: %v", err)
	}
	if m.PropertiesCreated != 0 || m.PropertiesPublished != 0 || m.TotalViews != 1 {
		t.Errorf("future window = %+v", m)
	}
}
