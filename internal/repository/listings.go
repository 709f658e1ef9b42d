package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"leadbot/internal/model"
	"leadbot/internal/utils"
)

const listingColumns = `
	id, address, city, state, zip_code, price, bedrooms, bathrooms, sqft,
	lot_size, property_type, year_built, features, images,
	COALESCE(CEIL(EXTRACT(EPOCH FROM NOW() - listing_date) / 86400)::int, -1) AS days_on_market,
	listing_date, description, school_ratings, mls_id, agent_info`

var locationTokenRe = regexp.MustCompile(`[,\s]+`)

// SearchListings returns active listings within budget, best feature match first
func (r *PostgresRepository) SearchListings(ctx context.Context, params model.SearchParams, limit int) ([]model.Property, error) {
	query, args := buildListingQuery(params, limit)

	var properties []model.Property
	if err := r.db.SelectContext(ctx, &properties, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch listings: %w", err)
	}
	return properties, nil
}

func buildListingQuery(params model.SearchParams, limit int) (string, []interface{}) {
	whereClauses := []string{"status = 'active'"}
	args := []interface{}{}
	argIndex := 1

	whereClauses = append(whereClauses, fmt.Sprintf("price <= $%d", argIndex))
	args = append(args, params.MaxPrice)
	argIndex++

	whereClauses = append(whereClauses, fmt.Sprintf("bedrooms >= $%d", argIndex))
	args = append(args, params.MinBedrooms)
	argIndex++

	if params.MinBathrooms != nil && *params.MinBathrooms > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("bathrooms >= $%d", argIndex))
		args = append(args, *params.MinBathrooms)
		argIndex++
	}

	// Every location token must match city, state or zip
	for _, token := range locationTokenRe.Split(params.Location, -1) {
		if token == "" {
			continue
		}
		whereClauses = append(whereClauses,
			fmt.Sprintf("(city ILIKE $%[1]d OR state ILIKE $%[1]d OR zip_code ILIKE $%[1]d)", argIndex))
		args = append(args, "%"+token+"%")
		argIndex++
	}

	if params.HasPropertyType() {
		whereClauses = append(whereClauses, fmt.Sprintf("property_type ILIKE $%d", argIndex))
		args = append(args, "%"+*params.PropertyType+"%")
		argIndex++
	}

	orderBy := "listing_date DESC NULLS LAST"
	conds, featureArgs, next := utils.BuildFeatureConditions(params.MustHaveFeatures, argIndex)
	if len(conds) > 0 {
		terms := make([]string, 0, len(conds))
		for _, c := range conds {
			terms = append(terms, "("+c+")::int")
		}
		orderBy = strings.Join(terms, " + ") + " DESC, " + orderBy
		args = append(args, featureArgs...)
		argIndex = next
	}

	query := fmt.Sprintf(`SELECT %s
		FROM listings
		WHERE %s
		ORDER BY %s
		LIMIT $%d`, listingColumns, strings.Join(whereClauses, " AND "), orderBy, argIndex)
	args = append(args, limit)

	return query, args
}
