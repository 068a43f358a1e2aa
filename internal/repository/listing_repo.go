package repository

import (
	"context"

	"github.com/DALF-G/spidexMarket/internal/models"
)

type ListingRepository struct {
	db DBTX
}

func NewListingRepository(db DBTX) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) GetByID(ctx context.Context, id int64) (*models.Listing, error) {
	query := `
		SELECT id, seller_id, title, description, price, photos, status, created_at
		FROM listings
		WHERE id = $1
	`
	var listing models.Listing
	err := r.db.QueryRow(ctx, query, id).Scan(
		&listing.ID,
		&listing.SellerID,
		&listing.Title,
		&listing.Description,
		&listing.Price,
		&listing.Photos,
		&listing.Status,
		&listing.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &listing, nil
}
