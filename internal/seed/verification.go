package seed

import (
	"fmt"
	"log"
)

// verifyListings checks the published views for ranking consistency
// and coverage of the seeded creators.
func verifyListings(cfg *Config, listings []Listing, stats *Stats) error {
	log.Println("Verifying listings...")

	if len(listings) == 0 {
		return fmt.Errorf("no listings to verify")
	}

	totalRanked := 0
	for _, listing := range listings {
		if err := verifySingleListing(listing); err != nil {
			return fmt.Errorf("category %s: %w", listing.Category, err)
		}
		totalRanked += listing.Total
	}

	if totalRanked != stats.SubjectsGenerated {
		log.Printf("Coverage warning: %d creators seeded but %d ranked", stats.SubjectsGenerated, totalRanked)
	} else {
		log.Printf("Coverage verified: all %d creators ranked", totalRanked)
	}

	displayTopCreators(listings, cfg.Verbose)

	log.Println("Listing verification completed")
	return nil
}

// verifySingleListing checks ordering invariants within one view.
func verifySingleListing(listing Listing) error {
	if listing.Epoch == 0 {
		return fmt.Errorf("no epoch published")
	}

	for i, entry := range listing.Results {
		if i == 0 {
			if entry.Rank != 1 {
				return fmt.Errorf("first entry has rank %d, expected 1", entry.Rank)
			}
			continue
		}
		prev := listing.Results[i-1]
		if entry.OverallScore > prev.OverallScore {
			return fmt.Errorf("entry %d (%s) outscores entry %d (%s)",
				i, entry.SubjectID, i-1, prev.SubjectID)
		}
		if entry.Rank < prev.Rank {
			return fmt.Errorf("rank order regressed at entry %d", i)
		}
		if entry.OverallScore == prev.OverallScore && entry.Rank != prev.Rank {
			return fmt.Errorf("tied scores at entries %d and %d have different ranks", i-1, i)
		}
	}

	return nil
}

// displayTopCreators shows the top of each category's board.
func displayTopCreators(listings []Listing, verbose bool) {
	const topN = 5

	for _, listing := range listings {
		n := topN
		if len(listing.Results) < n {
			n = len(listing.Results)
		}

		log.Printf("Top %d in %s (epoch %d, %d total):", n, listing.Category, listing.Epoch, listing.Total)
		for i := 0; i < n; i++ {
			entry := listing.Results[i]
			log.Printf("   %d. %s - Score: %.2f", entry.Rank, entry.Handle, entry.OverallScore)
		}

		if verbose && len(listing.Results) > 0 {
			avg := 0.0
			for _, entry := range listing.Results {
				avg += entry.OverallScore
			}
			avg /= float64(len(listing.Results))
			log.Printf("   Average score: %.2f", avg)
		}
	}
}
