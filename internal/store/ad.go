package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hookupza/apiserver/types"
	"github.com/jmoiron/sqlx"
)

const (
	adColumns = `a.id, a.user_id, a.title, a.category, a.location, a.description, a.services,
		a.rate, a.contact, a.photos, a.status, a.is_premium, a.created_at, a.expires_at`
	adOwnerColumns = adColumns + `, u.username, u.account_type`
)

// AdRepository handles persistence for ads.
type AdRepository struct {
	db *sqlx.DB
}

func NewAdRepository(db *sqlx.DB) *AdRepository {
	return &AdRepository{db: db}
}

func (r *AdRepository) Create(ctx context.Context, ad types.Ad) (types.Ad, error) {
	const query = `
		INSERT INTO ads (user_id, title, category, location, description, services, rate, contact,
			photos, status, is_premium, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	if err := r.db.QueryRowxContext(
		ctx,
		query,
		ad.UserID,
		ad.Title,
		ad.Category,
		ad.Location,
		ad.Description,
		ad.Services,
		ad.Rate,
		ad.Contact,
		ad.Photos,
		ad.Status,
		ad.IsPremium,
		ad.CreatedAt,
		ad.ExpiresAt,
	).Scan(&ad.ID); err != nil {
		return types.Ad{}, mapWriteError(err)
	}
	return ad, nil
}

// Get returns an ad with its owner's username and account type.
func (r *AdRepository) Get(ctx context.Context, id int) (types.Ad, error) {
	const query = `SELECT ` + adOwnerColumns + `
		FROM ads a JOIN users u ON a.user_id = u.id
		WHERE a.id = $1`
	var ad types.Ad
	if err := r.db.GetContext(ctx, &ad, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Ad{}, ErrNotFound
		}
		return types.Ad{}, err
	}
	return ad, nil
}

// ListByUser returns the ads owned by userID, newest first.
func (r *AdRepository) ListByUser(ctx context.Context, userID int) ([]types.Ad, error) {
	const query = `SELECT ` + adColumns + `
		FROM ads a
		WHERE a.user_id = $1
		ORDER BY a.created_at DESC, a.id DESC`
	ads := []types.Ad{}
	if err := r.db.SelectContext(ctx, &ads, query, userID); err != nil {
		return nil, err
	}
	return ads, nil
}

// ListAll returns every ad with owner columns, newest first.
func (r *AdRepository) ListAll(ctx context.Context) ([]types.Ad, error) {
	const query = `SELECT ` + adOwnerColumns + `
		FROM ads a JOIN users u ON a.user_id = u.id
		ORDER BY a.created_at DESC, a.id DESC`
	ads := []types.Ad{}
	if err := r.db.SelectContext(ctx, &ads, query); err != nil {
		return nil, err
	}
	return ads, nil
}

// ListPublic returns active, unexpired ads, premium first. An empty
// category matches every category.
func (r *AdRepository) ListPublic(ctx context.Context, category string, now time.Time, limit int) ([]types.Ad, error) {
	const query = `SELECT ` + adOwnerColumns + `
		FROM ads a JOIN users u ON a.user_id = u.id
		WHERE a.status = $1
			AND a.expires_at > $2
			AND ($3::text = '' OR a.category = $3::text)
		ORDER BY a.is_premium DESC, a.created_at DESC, a.id DESC
		LIMIT $4`
	ads := []types.Ad{}
	if err := r.db.SelectContext(ctx, &ads, query, types.AdStatusActive, now, category, limit); err != nil {
		return nil, err
	}
	return ads, nil
}

// Update writes the editable content fields. Status, premium flag and
// expiry are owned by the lifecycle operations and are left untouched.
func (r *AdRepository) Update(ctx context.Context, ad types.Ad) (types.Ad, error) {
	const query = `
		UPDATE ads
		SET title = $1,
			description = $2,
			category = $3,
			location = $4,
			services = $5,
			rate = $6,
			contact = $7,
			photos = $8
		WHERE id = $9`
	result, err := r.db.ExecContext(
		ctx,
		query,
		ad.Title,
		ad.Description,
		ad.Category,
		ad.Location,
		ad.Services,
		ad.Rate,
		ad.Contact,
		ad.Photos,
		ad.ID,
	)
	if err != nil {
		return types.Ad{}, err
	}
	if err := expectAffected(result); err != nil {
		return types.Ad{}, err
	}
	return ad, nil
}

// DeleteOwned removes an ad only if userID owns it.
func (r *AdRepository) DeleteOwned(ctx context.Context, id, userID int) error {
	const query = `DELETE FROM ads WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// SetStatus overwrites the status of one ad regardless of its current state
// and returns the id of the ad's owner.
func (r *AdRepository) SetStatus(ctx context.Context, id int, status types.AdStatus) (int, error) {
	const query = `UPDATE ads SET status = $1 WHERE id = $2 RETURNING user_id`
	var ownerID int
	if err := r.db.QueryRowxContext(ctx, query, status, id).Scan(&ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return ownerID, nil
}

// ActivatePendingBefore moves pending ads created at or before cutoff to active.
func (r *AdRepository) ActivatePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		UPDATE ads SET status = $1
		WHERE status = $2
			AND created_at <= $3`
	result, err := r.db.ExecContext(ctx, query, types.AdStatusActive, types.AdStatusPending, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ExpireActiveBefore moves active ads whose expiry is at or before now to expired.
func (r *AdRepository) ExpireActiveBefore(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE ads SET status = $1
		WHERE status = $2
			AND expires_at <= $3`
	result, err := r.db.ExecContext(ctx, query, types.AdStatusExpired, types.AdStatusActive, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *AdRepository) Stats(ctx context.Context) (types.Stats, error) {
	const query = `
		SELECT
			(SELECT COUNT(1) FROM users) AS total_users,
			(SELECT COUNT(1) FROM ads) AS total_ads,
			(SELECT COUNT(1) FROM ads WHERE status = 'pending') AS pending_ads,
			(SELECT COUNT(1) FROM ads WHERE status = 'active') AS active_ads,
			(SELECT COUNT(1) FROM ads WHERE status = 'expired') AS expired_ads,
			(SELECT COUNT(1) FROM users WHERE account_type = 'vendor') AS premium_users,
			(SELECT COUNT(1) FROM users WHERE account_type = 'free') AS free_users`
	var stats types.Stats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return types.Stats{}, err
	}
	return stats, nil
}
