package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/permission"
)

// PropertyResponse is a listing as the API returns it: the stored entity
// plus the owner's public details and whether the caller favorited it.
type PropertyResponse struct {
	models.Property
	Owner       *models.UserSummary `json:"owner,omitempty"`
	IsFavorited bool                `json:"is_favorited"`
}

// Present attaches owner summaries in one lookup. Owners that no longer
// exist are left as bare ids.
func (q *PropertyQueries) Present(ctx context.Context, caller permission.Caller, props ...models.Property) ([]PropertyResponse, error) {
	ids := make([]uuid.UUID, 0, len(props))
	seen := make(map[uuid.UUID]struct{}, len(props))
	for _, p := range props {
		if _, ok := seen[p.OwnerID]; ok {
			continue
		}
		seen[p.OwnerID] = struct{}{}
		ids = append(ids, p.OwnerID)
	}

	owners, err := q.users.GetByIDs(ctx, caller.TenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("load owners: %w", err)
	}

	out := make([]PropertyResponse, len(props))
	for i, p := range props {
		out[i] = PropertyResponse{
			Property:    p,
			IsFavorited: !caller.IsAnonymous() && p.IsFavoritedBy(caller.UserID),
		}
		if u, ok := owners[p.OwnerID]; ok {
			s := u.Summary()
			out[i].Owner = &s
		}
	}
	return out, nil
}

// PresentOne is Present for a single listing.
func (q *PropertyQueries) PresentOne(ctx context.Context, caller permission.Caller, p *models.Property) (*PropertyResponse, error) {
	out, err := q.Present(ctx, caller, *p)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}
