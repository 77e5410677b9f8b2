package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// retrieveListings fetches the ranked view for every seeded category.
func retrieveListings(ctx context.Context, cfg *Config, stats *Stats) ([]Listing, error) {
	log.Printf("Retrieving ranked listings for %d categories...", len(cfg.Categories))

	client := newHTTPClient(cfg.Timeout)

	listings := make([]Listing, 0, len(cfg.Categories))
	for _, category := range cfg.Categories {
		listing, err := retrieveSingleListing(ctx, client, cfg.BaseURL, category)
		if err != nil {
			return nil, fmt.Errorf("failed to list category %s: %w", category, err)
		}
		listings = append(listings, listing)
		stats.RankedRows += len(listing.Results)
	}

	stats.ListingsRetrieved = len(listings)
	log.Printf("Retrieved %d listings covering %d ranked rows", stats.ListingsRetrieved, stats.RankedRows)

	return listings, nil
}

// retrieveSingleListing fetches one category's ranked view.
func retrieveSingleListing(ctx context.Context, client *HTTPClient, baseURL, category string) (Listing, error) {
	url := fmt.Sprintf("%s/subjects?category=%s&limit=100", baseURL, category)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return Listing{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Listing{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return Listing{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var listing Listing
	if err := json.Unmarshal(body, &listing); err != nil {
		return Listing{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return listing, nil
}

// triggerRecompute forces every category dirty so listings are fresh.
func triggerRecompute(ctx context.Context, cfg *Config) error {
	client := newHTTPClient(cfg.Timeout)

	resp, err := client.Post(ctx, cfg.BaseURL+"/recompute", struct{}{})
	if err != nil {
		return fmt.Errorf("recompute request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusAccepted {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	log.Println("Recompute triggered for all categories")
	return nil
}
