package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/uptrace/bun"
)

type ShopRepository interface {
	GetItem(ctx context.Context, itemID string) (*models.ShopItem, error)
	GetActiveItems(ctx context.Context) ([]*models.ShopItem, error)
}

type shopRepository struct {
	*BaseRepository
}

func NewShopRepository(db *bun.DB) ShopRepository {
	return &shopRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *shopRepository) GetItem(ctx context.Context, itemID string) (*models.ShopItem, error) {
	item := new(models.ShopItem)
	err := r.db.NewSelect().
		Model(item).
		Where("id = ?", itemID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "shop item", ID: itemID}
		}
		return nil, r.HandleErrorWithID("get", "shop item", itemID, err)
	}

	return item, nil
}

func (r *shopRepository) GetActiveItems(ctx context.Context) ([]*models.ShopItem, error) {
	var items []*models.ShopItem
	err := r.db.NewSelect().
		Model(&items).
		Where("is_active = ?", true).
		Order("id ASC").
		Scan(ctx)

	return items, r.HandleError("get_active", "shop items", err)
}
