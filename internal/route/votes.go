package route

// Aggregate computes vote totals and the rating (up - down) / total rounded
// half away from zero to two decimals. No votes rate 0.
func Aggregate(votes []Vote) VoteStats {
	var stats VoteStats
	for _, v := range votes {
		switch v.VoteType {
		case VoteUp:
			stats.Upvotes++
		case VoteDown:
			stats.Downvotes++
		}
	}
	stats.VoteCount = stats.Upvotes + stats.Downvotes
	stats.AvgRating = rating(stats.Upvotes, stats.Downvotes)
	return stats
}

// rating rounds in integer hundredths so exact ties like 0.575 are not lost
// to float error.
func rating(up, down int) float64 {
	total := up + down
	if total == 0 {
		return 0
	}
	n := 100 * (up - down)
	sign := 1
	if n < 0 {
		sign, n = -1, -n
	}
	q := (2*n + total) / (2 * total)
	return float64(sign*q) / 100
}

func groupVotes(votes []Vote) map[string][]Vote {
	byRoute := make(map[string][]Vote)
	for _, v := range votes {
		byRoute[v.RouteID] = append(byRoute[v.RouteID], v)
	}
	return byRoute
}
